package medaware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type ResourceRequestConstructor[M Resource] func(*http.Request, User) (M, error)

// ResourceUpdateConstructor extracts the fields a request wants to change.
type ResourceUpdateConstructor func(*http.Request, User) (Changes, error)

type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// ResourceNames are the words used in a resource's routes and messages.
type ResourceNames struct {
	Singular string
	Plural   string
	IDField  string
}

type Controller[M Resource] interface {
	List(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)

	ItemFromContext(ctx context.Context) (M, error)
	ItemContextMiddleware(next http.Handler) http.Handler
	UserAccessMiddleware(next http.Handler) http.Handler

	GetRouter() *chi.Mux
}

type itemContextKey[M Resource] struct{}

type controller[M Resource] struct {
	additionalRoutes []Route
	names            ResourceNames

	auth   AuthService
	logger LoggerService
	svc    Service[M]
	Router *chi.Mux

	createRequestConstructor ResourceRequestConstructor[M]
	updateRequestConstructor ResourceUpdateConstructor
}

type ControllerOption[M Resource] func(*controller[M])

func NewController[M Resource](
	svc Service[M],
	logger LoggerService,
	authSvc AuthService,
	names ResourceNames,
	createRequestConstructor ResourceRequestConstructor[M],
	updateRequestConstructor ResourceUpdateConstructor,
	opts ...ControllerOption[M],
) Controller[M] {
	ctrl := &controller[M]{
		additionalRoutes: make([]Route, 0),
		names:            names,

		auth:   authSvc,
		logger: logger,
		svc:    svc,

		createRequestConstructor: createRequestConstructor,
		updateRequestConstructor: updateRequestConstructor,
	}

	for _, opt := range opts {
		opt(ctrl)
	}

	ctrl.Router = chi.NewRouter()
	ctrl.Router.Use(authSvc.AuthRequired())

	ctrl.Router.Post("/add", ctrl.Create)

	for _, route := range ctrl.additionalRoutes {
		ctrl.Router.Method(route.Method, route.Path, route.Handler)
	}

	ctrl.Router.Group(func(r chi.Router) {
		r.Use(ctrl.ItemContextMiddleware)
		r.Use(ctrl.UserAccessMiddleware)

		r.Get("/item/{id}", ctrl.Get)
		r.Put("/update/{id}", ctrl.Update)
		r.Delete("/delete/{id}", ctrl.Delete)
	})

	ctrl.Router.With(RequireOwnerParam(authSvc, "user_id")).Get("/{user_id}", ctrl.List)

	return ctrl
}

func (c *controller[M]) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := c.auth.GetUserFromCtx(ctx)
	if err != nil {
		render.Render(w, r, ErrUnauthorized(err))
		return
	}

	items, err := c.svc.ListByUser(ctx, user.ID())
	if err != nil {
		c.logger.Error("failed to list items", "resource", c.names.Plural, "error", err)
		render.Render(w, r, ErrUnknown(fmt.Errorf("Failed to fetch %s: %w", c.names.Plural, err)))

		return
	}

	render.Render(w, r, Success(
		c.names.Plural, RenderDTOs(items),
		"count", len(items),
	))
}

func (c *controller[M]) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := c.auth.GetUserFromCtx(ctx)
	if err != nil {
		render.Render(w, r, ErrUnauthorized(err))
		return
	}

	newItem, err := c.createRequestConstructor(r, user)
	if err != nil {
		renderRequestError(w, r, err)
		return
	}

	item, err := c.svc.CreateOne(ctx, user.ID(), newItem)
	if err != nil {
		c.logger.Error("failed to create item", "resource", c.names.Singular, "error", err)
		render.Render(w, r, ErrUnknown(fmt.Errorf("Failed to add %s: %w", c.names.Singular, err)))

		return
	}

	render.Status(r, http.StatusCreated)
	render.Render(w, r, Success(c.names.IDField, item.GetID()))
}

func (c *controller[M]) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	item, err := c.ItemFromContext(ctx)
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	render.Render(w, r, item.ToDTO())
}

func (c *controller[M]) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// user is already checked in UserAccessMiddleware so we can safely ignore the error
	user, _ := c.auth.GetUserFromCtx(ctx)

	item, err := c.ItemFromContext(ctx)
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	changes, err := c.updateRequestConstructor(r, user)
	if err != nil {
		renderRequestError(w, r, err)
		return
	}

	_, err = c.svc.UpdateOne(ctx, item.GetID(), changes)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoChanges):
			render.Render(w, r, ErrInvalidRequest(ErrNoChanges))
		case errors.Is(err, ErrRecordNotFound):
			render.Render(w, r, ErrNotFoundWith(c.notFoundErr()))
		default:
			c.logger.Error("failed to update item", "resource", c.names.Singular, "error", err)
			render.Render(w, r, ErrUnknown(fmt.Errorf("Failed to update %s: %w", c.names.Singular, err)))
		}

		return
	}

	render.Render(w, r, Success(
		"message", fmt.Sprintf("%s updated successfully", capitalize(c.names.Singular)),
	))
}

func (c *controller[M]) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	item, err := c.ItemFromContext(ctx)
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	err = c.svc.DeleteOne(ctx, item.GetID())
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			render.Render(w, r, ErrNotFoundWith(c.notFoundErr()))
			return
		}

		c.logger.Error("failed to delete item", "resource", c.names.Singular, "error", err)
		render.Render(w, r, ErrUnknown(fmt.Errorf("Failed to delete %s: %w", c.names.Singular, err)))

		return
	}

	render.Render(w, r, Success(
		"message", fmt.Sprintf("%s deleted successfully", capitalize(c.names.Singular)),
	))
}

func (c *controller[M]) ItemFromContext(ctx context.Context) (M, error) {
	item, ok := ctx.Value(itemContextKey[M]{}).(M)
	if !ok {
		return item, fmt.Errorf("failed to get item from context")
	}

	return item, nil
}

func (c *controller[M]) ItemContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		itemID := chi.URLParam(r, "id")
		if itemID == "" {
			render.Render(w, r, ErrNotFound)
			return
		}

		item, err := c.svc.GetOne(ctx, itemID)
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidID):
				render.Render(w, r, ErrInvalidRequest(fmt.Errorf("Invalid %s ID format", c.names.Singular)))
			case errors.Is(err, ErrRecordNotFound):
				render.Render(w, r, ErrNotFoundWith(c.notFoundErr()))
			default:
				c.logger.Error("failed to look up item", "resource", c.names.Singular, "error", err)
				render.Render(w, r, ErrUnknown(err))
			}

			return
		}

		ctxWithItem := context.WithValue(ctx, itemContextKey[M]{}, item)

		next.ServeHTTP(w, r.WithContext(ctxWithItem))
	})
}

func (c *controller[M]) UserAccessMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		user, err := c.auth.GetUserFromCtx(ctx)
		if err != nil {
			render.Render(w, r, ErrUnauthorized(err))
			return
		}

		item, err := c.ItemFromContext(ctx)
		if err != nil {
			render.Render(w, r, ErrInvalidRequest(err))
			return
		}

		if item.GetUserID() != user.ID() {
			render.Render(w, r, ErrForbidden(
				fmt.Errorf("You don't have permission to access this %s", c.names.Singular),
			))

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (c *controller[M]) GetRouter() *chi.Mux {
	return c.Router
}

func (c *controller[M]) notFoundErr() error {
	return fmt.Errorf("%s not found", capitalize(c.names.Singular))
}

// RequireOwnerParam rejects requests whose {param} URL segment is not the
// authenticated user's uid.
func RequireOwnerParam(authSvc AuthService, param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authSvc.GetUserFromCtx(r.Context())
			if err != nil {
				render.Render(w, r, ErrUnauthorized(err))
				return
			}

			if chi.URLParam(r, param) != user.ID() {
				render.Render(w, r, ErrForbidden(ErrUserMismatch))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// renderRequestError maps request constructor errors onto 403 for ownership
// mismatches and 400 for everything else.
func renderRequestError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrUserMismatch) {
		render.Render(w, r, ErrForbidden(ErrUserMismatch))
		return
	}

	render.Render(w, r, ErrInvalidRequest(err))
}

func capitalize(s string) string {
	first, size := utf8.DecodeRuneInString(s)
	if first == utf8.RuneError {
		return s
	}

	return string(unicode.ToUpper(first)) + strings.ToLower(s[size:])
}

func WithRoute[M Resource](method, path string, handler http.HandlerFunc) ControllerOption[M] {
	return func(c *controller[M]) {
		c.additionalRoutes = append(c.additionalRoutes, Route{
			Method:  method,
			Path:    path,
			Handler: handler,
		})
	}
}
