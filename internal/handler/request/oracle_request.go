package request

type RegisterBundleRequest struct {
	Path            string `json:"path" binding:"required,max=256"`
	SigningKey      string `json:"mpc_key" binding:"omitempty,near_pubkey"`
	ExternalAccount string `json:"eth_address" binding:"omitempty,near_account"`
}

type RegisterSessionKeyRequest struct {
	PublicKey string `json:"public_key" binding:"required,near_pubkey"`
	Path      string `json:"path" binding:"required,max=256"`
	AppID     string `json:"app_id" binding:"max=64"`
}
