// Package logger wraps zap with a global console logger on stderr and context helpers.
//
// Services name their logger with WithName and add fields with WithKV; the leveled
// helpers pick the logger up from the context and fall back to the global one.
package logger
