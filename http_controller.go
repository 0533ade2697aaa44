package accounts

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
	"github.com/google/uuid"
)

type Middleware interface {
	ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc
}

// GetRouterSession reads the session stashed on the request context. The JWT
// middleware stores validated AuthClaims under the context key; a raw
// *jwt.Token is accepted too for handlers that set one themselves.
func GetRouterSession(c router.Context, key string) (*SessionObject, error) {
	stored := c.Locals(key)
	if stored == nil {
		return nil, ErrUnableToFindSession
	}

	switch v := stored.(type) {
	case AuthClaims:
		return sessionFromAuthClaims(v)
	case *jwt.Token:
		if v == nil {
			return nil, ErrUnableToDecodeSession
		}
		claims, ok := v.Claims.(jwt.MapClaims)
		if claims == nil || !ok {
			return nil, ErrUnableToMapClaims
		}
		return sessionFromClaims(claims)
	default:
		return nil, ErrUnableToDecodeSession
	}
}

func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {

	controller := NewAuthController(opts...)

	app.
		Get(controller.Routes.Login,
			controller.LoginShow,
		).
		SetName("sign-in.get")

	app.
		Post(
			controller.Routes.Login,
			controller.LoginPost,
		).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.LogOut).SetName("sign-out.get")

	app.Get(controller.Routes.Register, controller.RegistrationShow).
		SetName("register.get")
	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("register.post")
}

type AuthControllerRoutes struct {
	Login    string
	Logout   string
	Register string
}

type AuthControllerViews struct {
	Login    string
	Logout   string
	Register string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Routes       *AuthControllerRoutes
	Views        *AuthControllerViews
	Auther       HTTPAuthenticator
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &AuthControllerRoutes{
			Login:    "/login",
			Logout:   "/logout",
			Register: "/register",
		},
		Views: &AuthControllerViews{
			Login:    "login",
			Logout:   "logout",
			Register: "register",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in auth controller...")
	}

	return c
}

func (a *AuthController) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// GetExtendedSession reports whether the remember-me box was checked
func (r LoginRequest) GetExtendedSession() bool {
	return r.RememberMe
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)
	formErrors := map[string]string{}

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": err.Error(),
		})
	}

	if a.Debug {
		a.Logger.Debug("login payload: %s", print.MaybePrettyJSON(payload))
	}

	if err := a.Auther.Login(ctx, payload); err != nil {
		// each rejection keeps its own message: not registered, blocked,
		// deleted, and bad credentials all read differently on the form
		formErrors["authentication"] = loginErrorMessage(err)
		return ctx.Render(a.Views.Login, router.ViewContext{
			"errors": formErrors,
			"record": payload,
		})
	}

	redirect := a.Auther.GetRedirect(ctx, "/")

	return ctx.Redirect(redirect, router.StatusSeeOther)
}

func (a *AuthController) LogOut(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.Redirect("/", router.StatusTemporaryRedirect)
}

func (a *AuthController) RegistrationShow(ctx router.Context) error {
	return ctx.Render(a.Views.Register, router.ViewContext{
		"errors": map[string]string{},
		"record": RegisterAccountMessage{},
	})
}

// RegistrationCreatePayload is the form payload
type RegistrationCreatePayload struct {
	DisplayName     string `form:"display_name" json:"display_name"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DisplayName, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		formErrors := map[string]string{}
		formErrors["form"] = "Failed to parse form"
		a.Logger.Error("register account parse payload: %v", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Register, router.ViewContext{
			"errors": formErrors,
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		formErrors := FormatValidationErrorToMap(err)
		a.Logger.Error("register account validate payload: %v", err)

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Register, router.ViewContext{
			"record":     payload,
			"validation": formErrors,
		})
	}

	req := RegisterAccountMessage{
		DisplayName: payload.DisplayName,
		Email:       payload.Email,
		Password:    payload.Password,
	}

	registerAccount := NewRegisterAccountHandler(a.Repo).WithLogger(a.Logger)
	if err := registerAccount.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("register account error: %v", err)

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error registering account",
		}).Render(a.Views.Register, router.ViewContext{
			"record": payload,
			"errors": []string{err.Error()},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Successful account registration",
	}).Redirect("/", fiber.StatusSeeOther)
}

// loginErrorMessage maps a login rejection to the message rendered on the
// form, preserving the distinct texts for each rejection cause.
func loginErrorMessage(err error) string {
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.Category != errors.CategoryInternal {
		return richErr.Message
	}
	return "Authentication Error"
}

// AdminControllerRoutes hold route paths for bulk lifecycle operations.
type AdminControllerRoutes struct {
	Block   string
	Unblock string
	Delete  string
}

// AdminController exposes the bulk block, unblock, and delete operations.
// The affected count and the self-action flag come straight from the
// mutator; when the admin affected their own account the commit has already
// happened, so the response is a sign-out redirect instead of a count.
type AdminController struct {
	Logger       Logger
	Mutator      *LifecycleMutator
	Auther       HTTPAuthenticator
	Routes       *AdminControllerRoutes
	SessionKey   string
	ErrorHandler router.ErrorHandler
}

type AdminControllerOption func(*AdminController) *AdminController

func NewAdminController(mutator *LifecycleMutator, auther HTTPAuthenticator, sessionKey string, opts ...AdminControllerOption) *AdminController {
	c := &AdminController{
		Logger:       defLogger{},
		Mutator:      mutator,
		Auther:       auther,
		SessionKey:   sessionKey,
		ErrorHandler: defaultErrHandler,
		Routes: &AdminControllerRoutes{
			Block:   "/admin/accounts/block",
			Unblock: "/admin/accounts/unblock",
			Delete:  "/admin/accounts/delete",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Mutator == nil {
		panic("Missing LifecycleMutator in admin controller...")
	}

	return c
}

// RegisterAdminRoutes mounts the bulk lifecycle endpoints.
func RegisterAdminRoutes[T any](app router.Router[T], controller *AdminController) {
	app.Post(controller.Routes.Block, controller.BlockAccounts).SetName("admin.accounts.block")
	app.Post(controller.Routes.Unblock, controller.UnblockAccounts).SetName("admin.accounts.unblock")
	app.Post(controller.Routes.Delete, controller.DeleteAccounts).SetName("admin.accounts.delete")
}

// BulkAccountsPayload carries the selected account ids.
type BulkAccountsPayload struct {
	IDs []string `form:"ids" json:"ids"`
}

// Validate will validate the payload
func (r BulkAccountsPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IDs, validation.Required, validation.Each(is.UUIDv4)),
	)
}

// AccountIDs parses the payload ids into uuids.
func (r BulkAccountsPayload) AccountIDs() ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(r.IDs))
	for _, raw := range r.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryBadInput, "invalid account id").
				WithMetadata(map[string]any{"id": raw}).
				WithCode(errors.CodeBadRequest)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (a *AdminController) BlockAccounts(ctx router.Context) error {
	return a.bulk(ctx, "blocked", a.Mutator.Block)
}

func (a *AdminController) UnblockAccounts(ctx router.Context) error {
	return a.bulk(ctx, "unblocked", a.Mutator.Unblock)
}

func (a *AdminController) DeleteAccounts(ctx router.Context) error {
	return a.bulk(ctx, "deleted", a.Mutator.Delete)
}

func (a *AdminController) bulk(ctx router.Context, verb string, op func(c context.Context, actor ActorRef, ids []uuid.UUID) (BulkResult, error)) error {
	payload := new(BulkAccountsPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("bulk %s parse payload: %v", verb, err)
		return ctx.JSON(fiber.StatusBadRequest, router.ViewContext{
			"error": "failed to parse payload",
		})
	}

	if len(payload.IDs) == 0 {
		return ctx.JSON(fiber.StatusBadRequest, router.ViewContext{
			"error": ErrNoAccountsSelected.Message,
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(fiber.StatusBadRequest, router.ViewContext{
			"error": err.Error(),
		})
	}

	ids, err := payload.AccountIDs()
	if err != nil {
		return ctx.JSON(fiber.StatusBadRequest, router.ViewContext{
			"error": err.Error(),
		})
	}

	actor := a.actorFromSession(ctx)

	result, err := op(ctx.Context(), actor, ids)
	if err != nil {
		var richErr *errors.Error
		if errors.As(err, &richErr) && richErr.Category == errors.CategoryValidation {
			return ctx.JSON(fiber.StatusBadRequest, router.ViewContext{
				"error": richErr.Message,
			})
		}
		a.Logger.Error("bulk %s failed: %v", verb, err)
		return ctx.JSON(fiber.StatusInternalServerError, router.ViewContext{
			"error": "operation failed",
		})
	}

	// when the admin just blocked or deleted their own account, the commit
	// stands; the only thing left to do is end their session
	if result.SelfAffected && verb != "unblocked" {
		return a.Auther.TerminateSession(ctx, "your account was "+verb)
	}

	return ctx.JSON(fiber.StatusOK, router.ViewContext{
		"operation": verb,
		"affected":  result.Affected,
	})
}

func (a *AdminController) actorFromSession(ctx router.Context) ActorRef {
	session, err := GetRouterSession(ctx, a.SessionKey)
	if err != nil || session == nil {
		return ActorRef{Type: "admin"}
	}
	return ActorRef{ID: session.GetUserID(), Type: "admin"}
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return validation.NewError("validation_match", "values must match")
		}
		return nil
	}
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
