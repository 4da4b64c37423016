package prediction

import (
	"net/http"

	"go.uber.org/fx"

	"github.com/medaware/medaware"
	"github.com/medaware/medaware/internal/classifier"
)

const PredictPath = "/api/predict_symptom"

type Params struct {
	fx.In

	DB         medaware.DBService
	Logger     medaware.LoggerService
	Auth       medaware.AuthService
	Classifier classifier.Classifier
}

type Result struct {
	fx.Out

	Service medaware.Service[*SymptomPrediction]
	Handler *Handler
	Mount   medaware.Mount `group:"routes"`
}

func New(params Params) Result {
	repo := medaware.NewRepository[*SymptomPrediction](params.DB, params.Logger)
	svc := medaware.NewService(repo)

	handler := NewHandler(params.Classifier, svc, params.Auth, params.Logger)

	return Result{
		Service: svc,
		Handler: handler,
		Mount: medaware.Mount{
			Pattern: PredictPath,
			Method:  http.MethodPost,
			Handler: params.Auth.AuthOptional()(http.HandlerFunc(handler.Predict)),
		},
	}
}

var Module = fx.Options(
	medaware.ProvideModel(&SymptomPrediction{}),
	fx.Provide(New),
)
