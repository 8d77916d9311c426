//go:build windows

// Package service provides Windows Service integration.
// When running as a Windows service, watchpost enters the SCM control loop.
// When running from a terminal, it runs in foreground.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/windows/svc"
)

const (
	serviceName = "WatchpostMonitor"

	// stopTimeout bounds how long Stop waits for the monitor to finish its
	// last tick and flush state.
	stopTimeout = 10 * time.Second
)

// MonitorService implements the Windows service interface (svc.Handler).
type MonitorService struct {
	logger  *zap.Logger
	startFn func(ctx context.Context)
}

// New creates a new Windows service wrapper.
// startFn is called with a cancellable context when the service starts and
// must return once that context is cancelled.
func New(logger *zap.Logger, startFn func(ctx context.Context)) *MonitorService {
	return &MonitorService{
		logger:  logger,
		startFn: startFn,
	}
}

// IsWindowsService checks if the process is running as a Windows service.
func IsWindowsService() bool {
	isService, err := svc.IsWindowsService()
	if err != nil {
		return false
	}
	return isService
}

// Run starts the Windows service control loop.
func (s *MonitorService) Run() error {
	return svc.Run(serviceName, s)
}

// Execute implements the svc.Handler interface for Windows SCM integration.
func (s *MonitorService) Execute(args []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (ssec bool, errno uint32) {
	changes <- svc.Status{State: svc.StartPending}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.startFn(ctx)
	}()

	changes <- svc.Status{
		State:   svc.Running,
		Accepts: svc.AcceptStop | svc.AcceptShutdown,
	}
	s.logger.Info("Windows service started")

	for {
		select {
		case <-done:
			s.logger.Warn("Monitor exited, stopping service")
			return false, 1
		case c := <-r:
			switch c.Cmd {
			case svc.Interrogate:
				changes <- c.CurrentStatus
			case svc.Stop, svc.Shutdown:
				s.logger.Info("Windows service stopping")
				changes <- svc.Status{State: svc.StopPending}
				cancel()
				select {
				case <-done:
				case <-time.After(stopTimeout):
					s.logger.Warn("Monitor did not stop in time", zap.Duration("timeout", stopTimeout))
				}
				return false, 0
			default:
				s.logger.Warn("Unexpected service control request",
					zap.Uint32("cmd", uint32(c.Cmd)))
			}
		}
	}
}
