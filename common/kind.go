package common

type Kind string

const (
	JWTBearer    Kind = "jwt_bearer"
)
