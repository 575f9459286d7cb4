package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client.
var UserAgent = "RemindMe/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "RemindMe"
	AppID             = "com.github.tartampluch.remindme"
	KeyringService    = "com.github.tartampluch.remindme"
	KeyringSecretUser = "session-secret"
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "app.log"
	ConfigFileName    = "config"
	ConfigFileType    = "yaml"
	EnvPrefix         = "REMINDME"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	// Used for logs and stored records.
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1

	// WatchBufferSize bounds the queue of store changes awaiting reconciliation.
	WatchBufferSize = 64
)

// -----------------------------------------------------------------------------
// CLI Commands, Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	CmdRoot          = "remindme"
	CmdServe         = "serve"
	CmdVersion       = "version"
	CmdDescRoot      = "Personal birthday reminder service"
	CmdDescServe     = "Run the HTTP API and the background worker"
	CmdDescVersion   = "Show application version and exit"
	FlagDebug        = "debug"
	FlagConfig       = "config"
	FlagDescDebug    = "Enable debug logging to stdout"
	FlagDescConfig   = "Path to a config.yaml file"
	MsgVersionOutput = "%s version %s (commit %s, built %s) %s/%s\n"
)

// -----------------------------------------------------------------------------
// Settings Keys (viper) & Defaults
// -----------------------------------------------------------------------------

const (
	SetServerHost       = "server.host"
	SetServerPort       = "server.port"
	SetServerRead       = "server.read_timeout"
	SetServerWrite      = "server.write_timeout"
	SetServerIdle       = "server.idle_timeout"
	SetStoreBackend     = "store.backend"
	SetStorePath        = "store.path"
	SetStoreRedisAddr   = "store.redis_addr"
	SetStoreRedisPass   = "store.redis_password"
	SetStoreRedisDB     = "store.redis_db"
	SetWorkerFlush      = "worker.flush_interval"
	SetWorkerReminder   = "worker.reminder_interval"
	SetNotifyWebhookURL = "notify.webhook_url"
	SetSessionSecret    = "session.secret"
	SetSessionMaxAge    = "session.max_age"
	SetLocale           = "locale"

	DefaultPort             = 18080
	DefaultBackend          = BackendFile
	DefaultStoreDir         = "data"
	DefaultRedisAddr        = "localhost:6379"
	DefaultFlushInterval    = 10 * time.Second
	DefaultReminderInterval = 1 * time.Hour
	DefaultSessionMaxAge    = 7 * 24 * time.Hour
	DefaultLanguage         = "en"
)

// CORSOrigins are the browser origins allowed to call the API.
var CORSOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}

// SupportedLanguages defines the list of available message catalogues (ISO 639-1).
var SupportedLanguages = []string{"en", "fr"}

// -----------------------------------------------------------------------------
// Storage Backends & Keys
// -----------------------------------------------------------------------------

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"

	// Global keys.
	KeyRegisteredUsers = "remindme_registered_users"
	KeyCurrentUser     = "remindme_current_user"
	KeyRememberedEmail = "remindme_remembered_email"

	// Per-account key prefixes; the account email is appended after KeySep.
	KeyBirthdays = "remindme_birthdays"
	KeyNotes     = "remindme_notes"
	KeyProfile   = "remindme_user_profile"
	KeyNotified  = "remindme_notified"
	KeySep       = "_"

	// File backend.
	FileExtJSON  = ".json"
	FileTempGlob = ".tmp-*"

	// SQLite backend.
	SQLiteDriver    = "sqlite"
	SQLiteFileName  = "remindme.db"
	SQLiteDSNParams = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	// Redis backend.
	RedisKeyPrefix     = "remindme:kv:"
	RedisChangeChannel = "remindme:changes"
)

// -----------------------------------------------------------------------------
// Domain: Birthdays, Reminders & Milestones
// -----------------------------------------------------------------------------

const (
	RelFamily = "Family"
	RelFriend = "Friend"
	RelWork   = "Work"
	RelOther  = "Other"

	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"

	MatchToday    = "today"
	MatchTomorrow = "tomorrow"
	MatchIn2Days  = "in-2-days"
	MatchIn7Days  = "in-7-days"

	DaysToday    = 0
	DaysTomorrow = 1
	DaysIn2      = 2
	DaysIn7      = 7

	GuestName        = "Guest User"
	FallbackName     = "Unknown"
	EmailLocalSep    = "@"
	DefaultLeapYear  = 2000 // Leap year used when placing Feb 29 in a neutral year
	LeapFallbackDay  = 28   // Feb 29 resolves to Feb 28 in non-leap years
	MonthsInYear     = 12
	HourAfternoon    = 12
	HourEvening      = 17
	SecondsPerDay    = 24 * 3600
	SecondsPerHour   = 3600
	SecondsPerMinute = 60
	FormatCountdown  = "%dd %dh %dm %ds"
	FormatInDays     = "In %d days"
	LabelToday       = "Today"
	LabelTomorrow    = "Tomorrow"
	GreetMorning     = "Good Morning"
	GreetAfternoon   = "Good Afternoon"
	GreetEvening     = "Good Evening"
)

// MilestoneAges is the fixed set of notable turning ages.
var MilestoneAges = []int{1, 5, 10, 13, 16, 18, 21, 25, 30, 40, 50, 60, 70, 75, 80, 90, 100}

// -----------------------------------------------------------------------------
// Localisation
// -----------------------------------------------------------------------------

const (
	LocaleDir    = "locales"
	LocalePrefix = "active."
	LocaleExt    = ".json"

	// Translation keys (must match internal/i18n/locales/active.*.json)
	TKeyEvtSummary       = "EvtSummary"
	TKeyEvtSummaryAge    = "EvtSummaryAge"
	TKeyEvtSummaryBirth  = "EvtSummaryBirth"
	TKeyLabelToday       = "LabelToday"
	TKeyLabelTomorrow    = "LabelTomorrow"
	TKeyLabelInDays      = "LabelInDays"
	TKeyGreetMorning     = "GreetMorning"
	TKeyGreetAfternoon   = "GreetAfternoon"
	TKeyGreetEvening     = "GreetEvening"
	TKeyReminderTitle    = "ReminderTitle"
	TKeyReminderToday    = "ReminderToday"
	TKeyReminderTomorrow = "ReminderTomorrow"
	TKeyReminderIn2Days  = "ReminderIn2Days"
	TKeyReminderIn7Days  = "ReminderIn7Days"
	TKeyMilestone        = "Milestone"
)

// -----------------------------------------------------------------------------
// Notifications
// -----------------------------------------------------------------------------

const (
	PermDefault = "default"
	PermGranted = "granted"
	PermDenied  = "denied"

	WebhookEvent       = "birthday.reminder"
	WebhookStatusFirst = 200
	WebhookStatusLast  = 299
)

// -----------------------------------------------------------------------------
// Accounts & Passwords
// -----------------------------------------------------------------------------

const (
	PasswordMinLength     = 8
	PasswordSuggestLength = 10
	PasswordSpecials      = "!@#$%^&*()"
	PasswordUpper         = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	PasswordLower         = "abcdefghijklmnopqrstuvwxyz"
	PasswordDigits        = "0123456789"
)

// -----------------------------------------------------------------------------
// Standards: iCalendar & vCard
// -----------------------------------------------------------------------------

const (
	// iCal Properties
	ICalVersion   = "2.0"
	ICalProdid    = "-//RemindMe//Engine//EN"
	ICalCalName   = "Birthdays"
	ICalMethod    = "PUBLISH"
	ICalScale     = "GREGORIAN"
	ICalComponent = "VALARM"
	ICalAction    = "DISPLAY"
	ICalDomain    = "remindme"

	// iCal/vCard Fields
	PropUID         = "UID"
	PropSummary     = "SUMMARY"
	PropDTStart     = "DTSTART"
	PropDTStamp     = "DTSTAMP"
	PropRefresh     = "REFRESH-INTERVAL"
	PropAction      = "ACTION"
	PropDescription = "DESCRIPTION"
	PropTrigger     = "TRIGGER"
	PropVersion     = "VERSION"
	PropProdid      = "PRODID"
	PropXWRCalName  = "X-WR-CALNAME"
	PropCalScale    = "CALSCALE"
	PropMethod      = "METHOD"

	VCardBDAY     = "BDAY"
	VCardFN       = "FN"
	VCardNote     = "NOTE"
	VCardUID      = "UID"
	VCardVersion  = "VERSION"
	VCardVersion4 = "4.0"

	TriggerOneDay   = "-P1D"
	TriggerTwoDays  = "-P2D"
	TriggerSevenDay = "-P7D"

	DefaultICalRefresh = 1 * time.Hour
	FormatUID          = "%s-%d@%s"
)

// -----------------------------------------------------------------------------
// Data Formats & Limits
// -----------------------------------------------------------------------------

const (
	// Date layouts accepted for birthdays (API payloads, stored records, vCard BDAY).
	DateFormatFullDash  = "2006-01-02"
	DateFormatFullBasic = "20060102"
	DateFormatRFC3339   = time.RFC3339
	DateFormatRFC3339ms = "2006-01-02T15:04:05.000Z07:00"
	DateFormatFullT     = "2006-01-02T15:04:05Z"
	DateFormatNoYearD   = "--01-02"
	DateFormatNoYearB   = "--0102"

	MaxHTTPResponseSize = 16 * 1024 * 1024 // 16MB
	MaxRequestBodySize  = 8 * 1024 * 1024  // 8MB, inline images included
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout        = 30 * time.Second
	ShutdownTimeout    = 5 * time.Second
	ServerReadTimeout  = 10 * time.Second
	ServerWriteTimeout = 30 * time.Second
	ServerIdleTimeout  = 60 * time.Second
	SchemeHTTP         = "http"
	SchemeHTTPS        = "https"
	AddrSeparator      = ":"
	CORSMaxAge         = 300
)

// -----------------------------------------------------------------------------
// HTTP Routes
// -----------------------------------------------------------------------------

const (
	RouteHealth       = "/health"
	RouteMetrics      = "/metrics"
	RouteCalendarFeed = "/calendar.ics"
	RouteAPI          = "/api"
	RouteRegister     = "/register"
	RouteLogin        = "/login"
	RouteLogout       = "/logout"
	RouteSession      = "/session"
	RouteSuggest      = "/password/suggest"
	RouteRemembered   = "/remembered"
	RouteBirthdays    = "/birthdays"
	RouteNotes        = "/notes"
	RouteByID         = "/{id}"
	RouteProfile      = "/profile"
	RouteData         = "/data"
	RouteDashboard    = "/dashboard"
	RouteMilestones   = "/milestones"
	RouteReminders    = "/reminders"
	RouteCalendarDay  = "/calendar/day/{date}"
	RouteCalendarMon  = "/calendar/month/{month}"
	RouteImportVCard  = "/import/vcard"
	RouteExportVCard  = "/export/vcard"

	URLParamID    = "id"
	URLParamDate  = "date"
	URLParamMonth = "month"

	QuerySearch = "q"
	QueryMonth  = "month"
	QueryLang   = "lang"
)

// -----------------------------------------------------------------------------
// HTTP Headers, MIME Types & Sessions
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderUserAgent       = "User-Agent"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"
	HeaderAcceptLanguage  = "Accept-Language"
	HeaderAccept          = "Accept"
	HeaderRequestID       = "X-Request-ID"
	HeaderContentDisp     = "Content-Disposition"

	MimeJSON            = "application/json"
	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeVCard           = "text/vcard; charset=utf-8"
	AcceptVCard         = "text/vcard, text/x-vcard;q=0.9, */*;q=0.1"
	FormatAttachment    = `attachment; filename="%s"`
	ExportFileName      = "birthdays.vcf"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`

	SessionCookieName = "remindme_session"
	SessionKeyEmail   = "email"
	SessionSecretLen  = 32
)

// -----------------------------------------------------------------------------
// API Error Codes
// -----------------------------------------------------------------------------

const (
	CodeValidation        = "validation_error"
	CodeBadRequest        = "bad_request"
	CodeDuplicateAccount  = "duplicate_account"
	CodeUnknownAccount    = "unknown_account"
	CodeInvalidCredential = "invalid_credential"
	CodeUnauthorized      = "unauthorized"
	CodeNotFound          = "not_found"
	CodeInternal          = "internal_error"
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrAppFailed          = "application failed unexpectedly"
	ErrLogFile            = "failed to open log file"
	ErrCacheDir           = "could not determine user cache dir"
	ErrCreateDir          = "could not create app cache dir"
	ErrConfigRead         = "failed to read config file"
	ErrConfigDecode       = "failed to decode config"
	ErrServerStartup      = "server startup failed"
	ErrServerShutdown     = "server shutdown failed"
	ErrPortRange          = "server port must be between 1 and 65535"
	ErrInvalidURL         = "invalid URL structure"
	ErrProtocol           = "unsupported protocol scheme (http/https only)"
	ErrVCardParse         = "failed to parse vCard stream"
	ErrVCardEncode        = "failed to encode vCard data"
	ErrICalEncode         = "failed to encode iCalendar data"
	ErrDateParse          = "unable to parse date"
	ErrWriteResp          = "failed to write response body"
	ErrLocalesAccess      = "failed to access embedded locales"
	ErrLocaleLoad         = "failed to load locale file"
	ErrStoreOpen          = "failed to open store"
	ErrStoreRead          = "failed to read stored value"
	ErrStoreWrite         = "failed to write stored value"
	ErrStoreDelete        = "failed to delete stored value"
	ErrStoreList          = "failed to list stored keys"
	ErrStoreWatch         = "failed to watch store"
	ErrStoreCorrupt       = "stored value is corrupt"
	ErrStoreNotFound      = "key not found"
	ErrBackendUnsupported = "unsupported store backend"
	ErrDuplicateAccount   = "account already registered"
	ErrUnknownAccount     = "account not registered"
	ErrInvalidCredential  = "invalid email or password"
	ErrNoSession          = "no active session"
	ErrNotFound           = "record not found"
	ErrValidation         = "validation failed"
	ErrPasswordWeak       = "password must be at least 8 characters and include uppercase, lowercase, digits, and special characters"
	ErrPasswordHash       = "failed to hash password"
	ErrEmailRequired      = "email is required"
	ErrNameRequired       = "name is required"
	ErrDateRequired       = "date is required"
	ErrRelationship       = "relationship must be one of Family, Friend, Work, Other"
	ErrGender             = "gender must be one of Male, Female, Other"
	ErrMonthRange         = "month must be between 1 and 12"
	ErrKeyringRead        = "failed to read secret from keyring"
	ErrKeyringWrite       = "failed to write secret to keyring"
	ErrSecretGenerate     = "failed to generate session secret"
	ErrNotifySend         = "failed to send notification"
	ErrNotifyStatus       = "notification endpoint returned unexpected status"
	ErrSessionSave        = "failed to save session cookie"
	ErrDecodeBody         = "invalid JSON body"
	ErrFetcherMissing     = "no vCard fetcher configured"
	ErrFetchRequest       = "failed to create request"
	ErrFetchNetwork       = "network error during fetch"
	ErrFetchStatus        = "server returned unexpected status"
	ErrFetchTooLarge      = "address book exceeds the size limit"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInternalErr  = "Internal Server Error"
	HTTPMsgUnauthorized = "Authentication required"
	HTTPMsgHealthy      = "ok"
	HTTPMsgNotFound     = "Resource not found"
)

// -----------------------------------------------------------------------------
// Fallbacks & Log Messages
// -----------------------------------------------------------------------------

const (
	FallbackSummary      = "Birthday: %s"
	FallbackSummaryAge   = "Birthday: %s (%d)"
	FallbackSummaryBirth = "Birthday: %s (birth)"
	FallbackReminder     = "%s's birthday is %s!"

	// StubVCalendar is the minimal valid iCalendar object used when no events are found.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"

	MsgAppStarting     = "Starting application"
	MsgAppStop         = "Application stopped gracefully"
	MsgStoreOpened     = "Store opened"
	MsgLogWarning      = "Warning: %s at %s: %v\n"
	MsgServerListen    = "HTTP server listening"
	MsgServerStop      = "Shutting down HTTP server..."
	MsgRequest         = "request"
	MsgFeedUpdated     = "Calendar feed updated"
	MsgLoggedIn        = "Logged in"
	MsgHandlerError    = "Request failed"
	MsgWorkerStart     = "Background worker started"
	MsgWorkerStop      = "Worker stopping due to context cancellation"
	MsgFlush           = "State flushed"
	MsgFlushFailed     = "Periodic flush failed"
	MsgReminderRun     = "Reminder evaluation finished"
	MsgReminderFailed  = "Reminder evaluation failed"
	MsgSessionLoaded   = "Session loaded"
	MsgSessionRestored = "Session restored"
	MsgSessionCleared  = "Session cleared"
	MsgDataCleared     = "Account data cleared"
	MsgSessionStale    = "Persisted session refers to an unknown account"
	MsgRegistered      = "Account registered"
	MsgLoginFailed     = "Login failed"
	MsgCorruptValue    = "Discarding corrupt stored value"
	MsgReconciled      = "Reconciled external change"
	MsgWatchStart      = "Store watcher started"
	MsgWatchStop       = "Store watcher stopped"
	MsgWatchEvent      = "Store change observed"
	MsgWatchError      = "Store watcher error"
	MsgNotified        = "Notification sent"
	MsgNotifyDenied    = "Notification permission denied, in-app only"
	MsgPermission      = "Notification permission decided"
	MsgNotifyFailed    = "Notification delivery failed"
	MsgNotifyLog       = "Birthday reminder"
	MsgBdayToday       = "Birthday found today"
	MsgSkippedCard     = "Skipping malformed vCard"
	MsgSkippedDate     = "Skipping invalid date format"
	MsgSkippedNoYear   = "Skipping birthday without a year"
	MsgImportDone      = "vCard import finished"
	MsgGenSuccess      = "Calendar generation successful"
	MsgLocaleSkip      = "Skipping non-locale file"
	MsgLocaleBadName   = "Skipping malformed locale filename"
	MsgLocaleLoaded    = "Locale loaded successfully"
	MsgTransMissing    = "Missing translation key"
	MsgSecretGenerated = "Generated new session secret"
	MsgKeyringFallback = "Keyring unavailable, using ephemeral secret"
	MsgRememberFailed  = "Could not update remembered credentials"
	MsgFetchStart      = "Initiating vCard download"
	MsgFetchStatus     = "Server returned error status"
	MsgFetchDownload   = "vCards downloading"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyHost      = "host"
	LogKeyPort      = "port"
	LogKeyBackend   = "backend"
	LogKeyInterval  = "interval"
	LogKeyUser      = "user"
	LogKeyEvent     = "event_id"
	LogKeyMatch     = "match"
	LogKeyCount     = "count"
	LogKeyName      = "name"
	LogKeyDOB       = "date_of_birth"
	LogKeyDuration  = "duration_ms"
	LogKeyValue     = "value"
	LogKeyTotal     = "total_cards"
	LogKeyImported  = "imported"
	LogKeySkipped   = "skipped"
	LogKeyPerm      = "permission"
	LogKeySizeBytes = "size_bytes"
	LogKeyMethod    = "method"
	LogKeyPath      = "path"
	LogKeyReqID     = "request_id"
	LogKeyRemote    = "remote_addr"
	LogKeyUA        = "user_agent"
	LogKeyLength    = "content_length"
	LogKeyETag      = "etag"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompMain    = "main"
	CompEngine  = "engine"
	CompServer  = "server"
	CompFetcher = "fetcher"
	CompWorker  = "worker"
	CompStore   = "store"
	CompWatcher = "watcher"
	CompApp     = "app"
	CompAccount = "account"
	CompNotify  = "notify"
	CompI18n    = "i18n"
)
