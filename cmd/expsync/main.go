package main

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/labtools/expsync/internal/config"
)

func main() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		s := <-sig
		slog.Warn("interrupted", "signal", s)
		code := 130
		if sn, ok := s.(syscall.Signal); ok {
			code = 128 + int(sn)
		}
		os.Exit(code)
	}()

	if err := NewRootCmd().Execute(); err != nil {
		var credErr *config.CredentialInputError
		if errors.As(err, &credErr) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}
