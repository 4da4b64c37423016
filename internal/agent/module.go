package agent

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/fx"

	"github.com/medaware/medaware"
	"github.com/medaware/medaware/internal/config"
	"github.com/medaware/medaware/internal/medication"
)

const ResponsePath = "/api/agent_response"

type Params struct {
	fx.In

	Config      config.Config
	Logger      medaware.LoggerService
	Auth        medaware.AuthService
	Medications medaware.Service[*medication.Medication]
	Provider    Provider `optional:"true"`
}

type Result struct {
	fx.Out

	Handler *Handler
	Mount   medaware.Mount `group:"routes"`
}

func New(params Params) (Result, error) {
	var result Result

	provider := params.Provider
	if provider == nil {
		p, err := NewProvider(context.Background(), params.Config.Agent, nil)
		if err != nil {
			return result, fmt.Errorf("failed to build agent provider: %w", err)
		}

		provider = p
	}

	if _, ok := provider.(unconfigured); ok {
		params.Logger.Warn("AGENT_API_KEY is not set, agent responses will fail", "provider", params.Config.Agent.Provider)
	}

	handler := NewHandler(provider, params.Medications, params.Auth, params.Logger)

	result.Handler = handler
	result.Mount = medaware.Mount{
		Pattern: ResponsePath,
		Method:  http.MethodPost,
		Handler: params.Auth.AuthOptional()(http.HandlerFunc(handler.Respond)),
	}

	return result, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
