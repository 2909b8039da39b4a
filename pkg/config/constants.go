package config

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "HOMEASE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "HOMEASE_DB_DSN"
	EnvDBHost = "HOMEASE_DB_HOST"
	EnvDBUser = "HOMEASE_DB_USER"
	EnvDBName = "HOMEASE_DB_NAME"
)

// legacyDBEnvVars are the discrete connection vars accepted when
// HOMEASE_DB_DSN is unset.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
