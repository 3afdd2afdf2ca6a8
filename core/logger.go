package core

// Logger is the application wide logging facade.
// args may contain an error, a map[string]interface{} of extras and the user.User concerned.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
