package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// SessionCookie 会话 Cookie 名称
const (
	SessionCookie    = "session"
	SessionMaxAge    = 365 * 24 * 3600
	TeamNameMaxLen   = 64
	PasswordMaxLen   = 72 // bcrypt 只接受 72 字节以内的密码
	AssetURLPrefix   = "/static/files/"
	ContextTeamIDKey = "teamID"
	ContextTokenKey  = "sessionToken"
)
