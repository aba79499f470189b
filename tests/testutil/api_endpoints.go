package testutil

const (
	APIBaseURL             = "/api/v1"
	HealthCheckEndpoint    = APIBaseURL + "/health"
	LoginEndpoint          = APIBaseURL + "/auth/login"
	RegisterEndpoint       = APIBaseURL + "/auth/register"
	ValidateEndpoint       = APIBaseURL + "/auth/validate"
	RefreshTokenEndpoint   = APIBaseURL + "/auth/refresh"
	LogoutEndpoint         = APIBaseURL + "/auth/logout"
	StatusEndpoint         = APIBaseURL + "/auth/status"
	MeEndpoint             = APIBaseURL + "/auth/me"
	ChangePasswordEndpoint = APIBaseURL + "/auth/change-password"
	SessionsEndpoint       = APIBaseURL + "/auth/sessions"
	SessionDeleteURL       = APIBaseURL + "/auth/sessions/" // Append session ID dynamically
)
