package common

// SessionCookieName carries the signed session JWT on browser requests.
const SessionCookieName = "pc_session"

// UnlimitedQuota is the daily_limit sentinel meaning "no limit".
const UnlimitedQuota = -1

// DateLayout is the storage format of daily_usage.date.
const DateLayout = "2006-01-02"

// Setting keys stored in system_settings.
const (
	SettingRegistrationOpen = "registration_open"
)
