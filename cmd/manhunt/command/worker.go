package command

import (
	"fmt"

	"github.com/pixil98/go-service"

	"github.com/pixil98/go-manhunt/internal/api"
	"github.com/pixil98/go-manhunt/internal/console"
	"github.com/pixil98/go-manhunt/internal/driver"
	"github.com/pixil98/go-manhunt/internal/listener"
	"github.com/pixil98/go-manhunt/internal/transport"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	bus, busWorker, err := cfg.Nats.buildBus()
	if err != nil {
		return nil, fmt.Errorf("creating bus: %w", err)
	}

	histories, err := cfg.Storage.buildHistoryStore()
	if err != nil {
		return nil, fmt.Errorf("creating history store: %w", err)
	}

	settings, err := cfg.Session.loadSettings()
	if err != nil {
		return nil, err
	}

	var topts []transport.TransportOpt
	if d := cfg.Nats.peerTimeout(); d > 0 {
		topts = append(topts, transport.WithPeerTimeout(d))
	}

	runner := driver.NewRunner(driver.RunnerConfig{
		Room:          cfg.Session.Room,
		Players:       cfg.Session.Players,
		Seekers:       cfg.Session.Seekers,
		Settings:      settings,
		Interval:      cfg.tickInterval(),
		TransportOpts: topts,
	}, bus, histories, cfg.Session.location())

	cm := listener.NewConnectionManager(console.New(runner))
	listeners := make(service.WorkerList, len(cfg.Listeners))
	for i, l := range cfg.Listeners {
		w, err := l.buildListener(cm)
		if err != nil {
			return nil, fmt.Errorf("creating listener %d: %w", i, err)
		}
		listeners[fmt.Sprintf("listener-%d", i)] = w
	}

	workers := service.WorkerList{
		"bus":       busWorker,
		"session":   runner,
		"listeners": &listeners,
	}
	if cfg.API.Addr != "" {
		workers["api"] = cfg.API.buildServer(api.NewHandler(histories, runner))
	}

	return workers, nil
}
