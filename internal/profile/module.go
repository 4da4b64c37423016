package profile

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/fx"

	"github.com/medaware/medaware"
)

type Params struct {
	fx.In

	DB     medaware.DBService
	Logger medaware.LoggerService
	Auth   medaware.AuthService
}

type Result struct {
	fx.Out

	Service Service
	Mount   medaware.Mount `group:"routes"`
}

type handler struct {
	svc    Service
	auth   medaware.AuthService
	logger medaware.LoggerService
}

func New(params Params) Result {
	repo := medaware.NewRepository[*Profile](params.DB, params.Logger)
	svc := NewService(repo)

	h := &handler{svc: svc, auth: params.Auth, logger: params.Logger}

	router := chi.NewRouter()
	router.Use(params.Auth.AuthRequired())
	router.Post("/", h.Save)
	router.Get("/", h.Get)

	return Result{
		Service: svc,
		Mount:   medaware.Mount{Pattern: "/onboarding", Handler: router},
	}
}

func (h *handler) Save(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.auth.GetUserFromCtx(ctx)
	if err != nil {
		render.Render(w, r, medaware.ErrUnauthorized(err))
		return
	}

	p, err := NewProfileFromRequest(r, user)
	if err != nil {
		render.Render(w, r, medaware.ErrInvalidRequest(err))
		return
	}

	if _, err := h.svc.Save(ctx, p); err != nil {
		h.logger.Error("failed to save onboarding data", "error", err)
		render.Render(w, r, medaware.ErrUnknown(errors.New("Failed to store onboarding data")))

		return
	}

	render.Render(w, r, medaware.Envelope{"message": "Onboarding data stored successfully"})
}

func (h *handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.auth.GetUserFromCtx(ctx)
	if err != nil {
		render.Render(w, r, medaware.ErrUnauthorized(err))
		return
	}

	p, err := h.svc.Get(ctx, user.ID())
	if err != nil {
		if errors.Is(err, medaware.ErrRecordNotFound) {
			render.Render(w, r, medaware.ErrNotFoundWith(errors.New("Profile not found")))
			return
		}

		h.logger.Error("failed to load onboarding data", "error", err)
		render.Render(w, r, medaware.ErrUnknown(errors.New("Failed to fetch onboarding data")))

		return
	}

	render.Render(w, r, medaware.Success("profile", p.ToDTO()))
}

var Module = fx.Options(
	medaware.ProvideModel(&Profile{}),
	fx.Provide(New),
)
