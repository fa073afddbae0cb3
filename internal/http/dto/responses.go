package dto

type ChallengeResponse struct {
	Message string `json:"message"`
}

type AuthResponse struct {
	Token  string `json:"token"`
	Wallet string `json:"wallet"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type BalanceResponse struct {
	Scope   string `json:"scope"`
	Account string `json:"account"`
	Wei     string `json:"wei"`
	ETH     string `json:"eth"`
}

type RoleResponse struct {
	Scope   string `json:"scope"`
	Role    string `json:"role"`
	Account string `json:"account"`
	Granted bool   `json:"granted"`
}

type PaidResponse struct {
	Fully bool `json:"fully_paid"`
}
