package logger

import (
	"context"

	"go.uber.org/zap"
)

// zapLogger adapts a zap.SugaredLogger to Logger. Key/value pairs pass
// through redaction before they reach the encoder.
type zapLogger struct {
	z     *zap.Logger
	sugar *zap.SugaredLogger
	ctx   context.Context
}

func newZapLogger(z *zap.Logger) *zapLogger {
	return &zapLogger{z: z, sugar: z.Sugar(), ctx: context.Background()}
}

func (l *zapLogger) Debug(msg string, args ...any) {
	l.sugar.Debugw(msg, redactArgs(args)...)
}

func (l *zapLogger) Info(msg string, args ...any) {
	l.sugar.Infow(msg, redactArgs(args)...)
}

func (l *zapLogger) Warn(msg string, args ...any) {
	l.sugar.Warnw(msg, redactArgs(args)...)
}

func (l *zapLogger) Error(msg string, args ...any) {
	l.sugar.Errorw(msg, redactArgs(args)...)
}

func (l *zapLogger) With(args ...any) Logger {
	sugar := l.sugar.With(redactArgs(args)...)
	return &zapLogger{z: sugar.Desugar(), sugar: sugar, ctx: l.ctx}
}

func (l *zapLogger) WithContext(ctx context.Context) Logger {
	return &zapLogger{z: l.z, sugar: l.sugar, ctx: ctx}
}
