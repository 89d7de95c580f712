package main

import (
	"context"
	"time"

	"github.com/arzzra/sofia_sip/pkg/config"
	"github.com/arzzra/sofia_sip/pkg/nua"
	"github.com/arzzra/sofia_sip/pkg/su"
)

// session реактор и агент одной команды. Все методы вызываются из
// горутины, которая создала session и закрепила за собой поток.
type session struct {
	root  *su.Root
	agent *nua.Nua
	step  time.Duration
}

func openSession(cfg *config.Config, cb nua.EventFunc) (*session, error) {
	tags, err := cfg.AgentTags()
	if err != nil {
		return nil, err
	}
	root, err := su.Create()
	if err != nil {
		return nil, err
	}
	agent, err := nua.CreateFull(root, cb, tags)
	if err != nil {
		root.Destroy()
		return nil, err
	}
	return &session{root: root, agent: agent, step: cfg.Reactor.StepTimeout}, nil
}

// pumpUntil крутит реактор, пока done не вернет true или не истечет ctx
func (s *session) pumpUntil(ctx context.Context, done func() bool) error {
	for !done() {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.root.Step(s.step)
	}
	return nil
}

func (s *session) close() {
	s.agent.Destroy()
	s.root.Destroy()
	su.Deinit()
}
