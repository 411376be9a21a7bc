package auth

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is the region used to interpret national phone numbers
const DefaultPhoneRegion = "SN"

type AuthControllerRoutes struct {
	Login          string
	Refresh        string
	ChangePassword string
	ForgotPassword string
	ResetPassword  string
	Register       string
}

type AuthController struct {
	Debug     bool
	Logger    Logger
	Repo      RepositoryManager
	Routes    *AuthControllerRoutes
	Auther    Authenticator
	Passwords *PasswordService
	Register  *RegisterEmployerHandler
	Notifier  ResetNotifier
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Login:          "/login",
			Refresh:        "/refresh",
			ChangePassword: "/change-password",
			ForgotPassword: "/forgot-password",
			ResetPassword:  "/reset-password",
			Register:       "/register-with-files",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	return c
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuthenticator(auther Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerPasswords(passwords *PasswordService) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Passwords = passwords
		return c
	}
}

func WithControllerRegistration(handler *RegisterEmployerHandler) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Register = handler
		return c
	}
}

func WithControllerNotifier(notifier ResetNotifier) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Notifier = notifier
		return c
	}
}

// RegisterAuthRoutes mounts the authentication endpoints under the given router
func RegisterAuthRoutes(app fiber.Router, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Login, controller.LoginPost).Name("sign-in.post")
	app.Post(controller.Routes.Refresh, controller.RefreshPost).Name("refresh.post")
	app.Post(controller.Routes.ChangePassword, controller.ChangePasswordPost).Name("pwd-change.post")
	app.Post(controller.Routes.ForgotPassword, controller.ForgotPasswordPost).Name("pwd-forgot.post")
	app.Post(controller.Routes.ResetPassword, controller.ResetPasswordPost).Name("pwd-reset.post")
	app.Post(controller.Routes.Register, controller.RegisterEmployerPost).Name("register.post")

	return controller
}

// LoginRequest is the sign in payload
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) LoginPost(ctx *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := ctx.BodyParser(payload); err != nil {
		return a.validationError(ctx, "malformed request body")
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(ctx, err.Error())
	}

	if a.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=========================")
	}

	tokens, identity, err := a.Auther.Login(ctx.UserContext(), payload.Username, payload.Password)
	if err != nil {
		if goerrors.IsAuth(err) {
			a.Logger.Info("login rejected", "username", payload.Username)
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid credentials",
				"code":  TextCodeInvalidCreds,
			})
		}
		return a.respondError(ctx, err)
	}

	response := fiber.Map{
		"accessToken":  tokens.AccessToken,
		"refreshToken": tokens.RefreshToken,
		"tokenType":    "Bearer",
		"username":     identity.Username(),
		"roles":        identity.Roles(),
	}

	a.flattenEmployerProfile(ctx, identity, response)

	return ctx.JSON(response)
}

// flattenEmployerProfile merges the employer profile fields into the login
// response when the identity belongs to an employer account.
func (a *AuthController) flattenEmployerProfile(ctx *fiber.Ctx, identity Identity, response fiber.Map) {
	if a.Repo == nil {
		return
	}

	employer, err := a.Repo.Employers().GetByEmail(ctx.UserContext(), identity.Email())
	if err != nil {
		return
	}

	response["employerId"] = employer.ID
	response["companyName"] = employer.CompanyName
	response["ninea"] = employer.Ninea
	response["firstName"] = employer.FirstName
	response["lastName"] = employer.LastName
	response["accountStatus"] = employer.AccountStatus
}

// RefreshRequest carries a refresh token to exchange for a new access token
type RefreshRequest struct {
	Token string `json:"refreshToken" form:"refreshToken"`
}

func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
	)
}

func (a *AuthController) RefreshPost(ctx *fiber.Ctx) error {
	payload := new(RefreshRequest)

	if err := ctx.BodyParser(payload); err != nil {
		return a.validationError(ctx, "malformed request body")
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(ctx, err.Error())
	}

	token, err := a.Auther.Refresh(ctx.UserContext(), payload.Token)
	if err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(fiber.Map{
		"token":     token,
		"tokenType": "Bearer",
	})
}

// ChangePasswordRequest rotates the password of the authenticated account
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" form:"currentPassword"`
	NewPassword     string `json:"newPassword" form:"newPassword"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword"`
}

func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.ConfirmPassword, validation.Required),
	)
}

// ChangePasswordPost takes the account from the request identity, never from
// the body, so a caller can only ever rotate their own password.
func (a *AuthController) ChangePasswordPost(ctx *fiber.Ctx) error {
	identity, ok := GetFiberIdentity(ctx, "")
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "authentication required",
		})
	}

	payload := new(ChangePasswordRequest)

	if err := ctx.BodyParser(payload); err != nil {
		return a.validationError(ctx, "malformed request body")
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(ctx, err.Error())
	}

	if payload.NewPassword != payload.ConfirmPassword {
		return a.validationError(ctx, "password confirmation does not match")
	}

	if !a.Passwords.IsCurrentPasswordValid(ctx.UserContext(), identity.Username(), payload.CurrentPassword) {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "current password is incorrect",
			"code":  TextCodeInvalidCreds,
		})
	}

	if err := a.Passwords.ChangePassword(ctx.UserContext(), identity.Username(), payload.NewPassword); err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(fiber.Map{"message": "password updated"})
}

// ForgotPasswordRequest starts the reset flow for an account email
type ForgotPasswordRequest struct {
	Email string `json:"email" form:"email"`
}

func (r ForgotPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// ForgotPasswordPost always answers with the same generic acknowledgement so
// the endpoint cannot be used to probe which emails hold accounts.
func (a *AuthController) ForgotPasswordPost(ctx *fiber.Ctx) error {
	payload := new(ForgotPasswordRequest)

	if err := ctx.BodyParser(payload); err != nil {
		return a.validationError(ctx, "malformed request body")
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(ctx, err.Error())
	}

	token, err := a.Passwords.CreateResetToken(ctx.UserContext(), payload.Email)
	if err == nil && a.Notifier != nil {
		if err := a.Notifier.SendPasswordReset(ctx.UserContext(), payload.Email, token); err != nil {
			a.Logger.Error("failed to send password reset notification", "error", err)
		}
	} else if err != nil {
		a.Logger.Info("password reset requested for unknown account", "email", payload.Email)
	}

	return ctx.JSON(fiber.Map{
		"message": "If an account exists for this email, a reset link has been sent.",
	})
}

// ResetPasswordRequest finalizes a reset using an emailed token
type ResetPasswordRequest struct {
	Token           string `json:"token" form:"token"`
	NewPassword     string `json:"newPassword" form:"newPassword"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword"`
}

func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.ConfirmPassword, validation.Required),
	)
}

func (a *AuthController) ResetPasswordPost(ctx *fiber.Ctx) error {
	payload := new(ResetPasswordRequest)

	if err := ctx.BodyParser(payload); err != nil {
		return a.validationError(ctx, "malformed request body")
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(ctx, err.Error())
	}

	if payload.NewPassword != payload.ConfirmPassword {
		return a.validationError(ctx, "password confirmation does not match")
	}

	if err := a.Passwords.ConsumeResetToken(ctx.UserContext(), payload.Token, payload.NewPassword); err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(fiber.Map{"message": "password has been reset"})
}

// RegisterEmployerPayload is the multipart registration form
type RegisterEmployerPayload struct {
	CompanyName            string `json:"companyName" form:"companyName"`
	Ninea                  string `json:"ninea" form:"ninea"`
	ActivitySector         string `json:"activitySector" form:"activitySector"`
	CompanySize            string `json:"companySize" form:"companySize"`
	Address                string `json:"address" form:"address"`
	AddressComplement      string `json:"addressComplement" form:"addressComplement"`
	Department             string `json:"department" form:"department"`
	Country                string `json:"country" form:"country"`
	Website                string `json:"website" form:"website"`
	FirstName              string `json:"firstName" form:"firstName"`
	LastName               string `json:"lastName" form:"lastName"`
	Function               string `json:"function" form:"function"`
	ProfessionalPhone      string `json:"professionalPhone" form:"professionalPhone"`
	ProfessionalPhoneFixed string `json:"professionalPhoneFixed" form:"professionalPhoneFixed"`
	ProfessionalEmail      string `json:"professionalEmail" form:"professionalEmail"`
	Password               string `json:"password" form:"password"`
}

// Validate will validate the payload
func (r RegisterEmployerPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CompanyName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Ninea, validation.Required, validation.Length(1, 50)),
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.ProfessionalEmail, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.ProfessionalPhone, validation.Required, validation.By(ValidatePhoneNumber(DefaultPhoneRegion))),
		validation.Field(&r.ProfessionalPhoneFixed, validation.By(OptionalPhoneNumber(DefaultPhoneRegion))),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

// ValidatePhoneNumber checks that the value parses as a valid number for the
// given region
func ValidatePhoneNumber(region string) validation.RuleFunc {
	return func(value interface{}) error {
		raw, _ := value.(string)
		num, err := phonenumbers.Parse(raw, region)
		if err != nil {
			return fmt.Errorf("invalid phone number: %w", err)
		}
		if !phonenumbers.IsValidNumber(num) {
			return fmt.Errorf("invalid phone number for region %s", region)
		}
		return nil
	}
}

// OptionalPhoneNumber is ValidatePhoneNumber that accepts an empty value
func OptionalPhoneNumber(region string) validation.RuleFunc {
	check := ValidatePhoneNumber(region)
	return func(value interface{}) error {
		raw, _ := value.(string)
		if raw == "" {
			return nil
		}
		return check(value)
	}
}

func (a *AuthController) RegisterEmployerPost(ctx *fiber.Ctx) error {
	payload := new(RegisterEmployerPayload)

	if err := ctx.BodyParser(payload); err != nil {
		return a.validationError(ctx, "malformed request body")
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(ctx, err.Error())
	}

	// both documents are optional at registration time; missing slots
	// leave a nil header and nothing is stored for them
	nineaDoc, _ := ctx.FormFile("nineaDocument")
	rccmDoc, _ := ctx.FormFile("rccmDocument")

	if a.Debug {
		fmt.Println("======= EMPLOYER REGISTRATION ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("====================================")
	}

	message := RegisterEmployerMessage{
		CompanyName:            payload.CompanyName,
		Ninea:                  payload.Ninea,
		ActivitySector:         payload.ActivitySector,
		CompanySize:            payload.CompanySize,
		Address:                payload.Address,
		AddressComplement:      payload.AddressComplement,
		Department:             payload.Department,
		Country:                payload.Country,
		Website:                payload.Website,
		FirstName:              payload.FirstName,
		LastName:               payload.LastName,
		Function:               payload.Function,
		ProfessionalPhone:      payload.ProfessionalPhone,
		ProfessionalPhoneFixed: payload.ProfessionalPhoneFixed,
		ProfessionalEmail:      payload.ProfessionalEmail,
		Password:               payload.Password,
		NineaDocument:          nineaDoc,
		RCCMDocument:           rccmDoc,
	}

	response, err := a.Register.Execute(ctx.UserContext(), message)
	if err != nil {
		return a.respondError(ctx, err)
	}

	body := fiber.Map{
		"message":       "Registration successful. Your account is pending activation.",
		"employerId":    response.EmployerID,
		"accountStatus": response.AccountStatus,
	}

	if response.Tokens != nil {
		body["accessToken"] = response.Tokens.AccessToken
		body["refreshToken"] = response.Tokens.RefreshToken
		body["tokenType"] = "Bearer"
	}

	return ctx.Status(fiber.StatusCreated).JSON(body)
}

func (a *AuthController) validationError(ctx *fiber.Ctx, message string) error {
	return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": message,
	})
}

func (a *AuthController) respondError(ctx *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred")
	}

	a.Logger.Info(
		"request error",
		"error", richErr.Message,
		"category", richErr.Category,
		"text_code", richErr.TextCode,
	)

	body := fiber.Map{"error": richErr.Message}
	if richErr.TextCode != "" {
		body["code"] = richErr.TextCode
	}

	switch richErr.Category {
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ctx.Status(fiber.StatusUnauthorized).JSON(body)
	case goerrors.CategoryConflict, goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return ctx.Status(fiber.StatusBadRequest).JSON(body)
	case goerrors.CategoryNotFound:
		return ctx.Status(fiber.StatusNotFound).JSON(body)
	default:
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "An unexpected server error occurred",
		})
	}
}
