// Package symptom serves a user's symptom log, free-text symptom analysis and
// the history of classifier predictions.
package symptom

import (
	"net/http"

	"go.uber.org/fx"

	"github.com/medaware/medaware"
	"github.com/medaware/medaware/internal/classifier"
	"github.com/medaware/medaware/internal/prediction"
)

var Names = medaware.ResourceNames{
	Singular: "symptom",
	Plural:   "symptoms",
	IDField:  "symptom_id",
}

type Params struct {
	fx.In

	DB          medaware.DBService
	Logger      medaware.LoggerService
	Auth        medaware.AuthService
	Classifier  classifier.Classifier
	Predictions *prediction.Handler
}

type Result struct {
	fx.Out

	Service    medaware.Service[*Symptom]
	Controller medaware.Controller[*Symptom]
	Mount      medaware.Mount `group:"routes"`
}

func New(params Params) Result {
	repo := medaware.NewRepository[*Symptom](params.DB, params.Logger)
	svc := medaware.NewService(repo, medaware.WithUpdatedAt[*Symptom]())

	a := &analyzer{
		svc:        svc,
		classifier: params.Classifier,
		auth:       params.Auth,
		logger:     params.Logger,
	}

	listPredictions := medaware.RequireOwnerParam(params.Auth, "user_id")(
		http.HandlerFunc(params.Predictions.List),
	)

	ctrl := medaware.NewController(
		svc,
		params.Logger,
		params.Auth,
		Names,
		NewSymptomFromRequest,
		SymptomChangesFromRequest,
		medaware.WithRoute[*Symptom](http.MethodPost, "/analyze", a.Analyze),
		medaware.WithRoute[*Symptom](http.MethodGet, "/predictions/{user_id}", listPredictions.ServeHTTP),
	)

	return Result{
		Service:    svc,
		Controller: ctrl,
		Mount:      medaware.Mount{Pattern: "/symptoms", Handler: ctrl.GetRouter()},
	}
}

var Module = fx.Options(
	medaware.ProvideModel(&Symptom{}),
	fx.Provide(New),
)
