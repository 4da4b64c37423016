// Package medication serves a user's medication list.
package medication

import (
	"go.uber.org/fx"

	"github.com/medaware/medaware"
)

var Names = medaware.ResourceNames{
	Singular: "medication",
	Plural:   "medications",
	IDField:  "med_id",
}

type Params struct {
	fx.In

	DB     medaware.DBService
	Logger medaware.LoggerService
	Auth   medaware.AuthService
}

type Result struct {
	fx.Out

	Service    medaware.Service[*Medication]
	Controller medaware.Controller[*Medication]
	Mount      medaware.Mount `group:"routes"`
}

func New(params Params) Result {
	repo := medaware.NewRepository[*Medication](params.DB, params.Logger)
	svc := medaware.NewService(repo, medaware.WithUpdatedAt[*Medication]())

	ctrl := medaware.NewController(
		svc,
		params.Logger,
		params.Auth,
		Names,
		NewMedicationFromRequest,
		MedicationChangesFromRequest,
	)

	return Result{
		Service:    svc,
		Controller: ctrl,
		Mount:      medaware.Mount{Pattern: "/medications", Handler: ctrl.GetRouter()},
	}
}

var Module = fx.Options(
	medaware.ProvideModel(&Medication{}),
	fx.Provide(New),
)
