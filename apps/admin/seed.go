package main

import "context"

func (cli *commandLine) seedAchievements(ctx context.Context) error {
	n, err := cli.trackSvc.SeedAchievements(ctx)
	if err != nil {
		return err
	}
	cli.printf("%d achievement(s) created.\n", n)
	return nil
}
