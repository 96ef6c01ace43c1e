// Package logging centralizes zap construction the way the teacher
// centralizes *pgxpool.Pool / *redis.Client construction: one
// constructor, injected everywhere else.
package logging

import "go.uber.org/zap"

func New(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func Sugar(l *zap.Logger) *zap.SugaredLogger {
	return l.Sugar()
}
