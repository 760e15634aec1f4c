package vivint

// Production endpoints. Overridable through transport options for tests.
const (
	DefaultAPIBase      = "https://www.vivintsky.com/api"
	DefaultAuthHost     = "https://id.vivint.com"
	DefaultGRPCEndpoint = "grpc.vivintsky.com:50051"
)

// OAuth constants for the PKCE password login.
const (
	oauthClientID    = "ios"
	oauthRedirectURI = "vivint://app/oauth_redirect"
	oauthScope       = "openid email devices email_verified"
)

// Realtime push channel constants.
const (
	pushSubscribeKey  = "sub-c-6fb03d68-6a78-11e2-ae8f-12313f022c90"
	pushChannelPrefix = "PlatformChannel"
)

// Push message envelope keys.
const (
	KeyID               = "_id"
	KeyType             = "t"
	KeyOperation        = "op"
	KeyData             = "da"
	KeyPanelID          = "panid"
	KeyPartitionID      = "parid"
	// Partition payloads sometimes carry the descriptive forms of the
	// panel and partition ids instead of the short aliases.
	KeyPanelIDLong     = "panel_id"
	KeyPartitionIDLong = "partition_id"
	KeyPartitions       = "par"
	KeyUsers            = "u"
	KeyDevices          = "d"
	KeyUnregistered     = "ureg"
	KeyName             = "n"
	KeySerial           = "sn"
	KeyAdmin            = "ad"
	KeyBroadcastChannel = "mbc"
	KeySystem           = "system"
	KeySystemInfo       = "sinfo"
	KeyFeatures         = "fea"
)

// Push message type tags and operations.
const (
	MessageTypeAccountSystem    = "account_system"
	MessageTypeAccountPartition = "account_partition"

	OperationCreate = "c"
	OperationDelete = "d"
	OperationUpdate = "u"
)

// Common device attribute keys.
const (
	AttrBatteryLevel       = "bl"
	AttrLowBattery         = "lb"
	AttrBypassed           = "b"
	AttrTamper             = "ta"
	AttrState              = "s"
	AttrOnline             = "ol"
	AttrSerialNumber       = "ser"
	AttrSerialNumber32Bit  = "ser32"
	AttrSoftwareVersion    = "csv"
	AttrFirmwareVersion    = "fwv"
	AttrCapabilityCategory = "caca"
	AttrCapability         = "ca"
	AttrFeatures           = "ft"
)

// Camera attribute keys.
const (
	AttrActualType               = "act"
	AttrCameraDirectAvailable    = "cda"
	AttrCameraDirectStreamPath   = "cdp"
	AttrCameraDirectStreamPathSD = "cdps"
	AttrCameraIPAddress          = "caip"
	AttrCameraIPPort             = "cap"
	AttrCameraMAC                = "cmac"
	AttrCameraPrivacy            = "cpri"
	AttrCameraThumbnailDate      = "ctd"
	AttrCameraExtendChime        = "cea"
	AttrCaptureClipOnMotion      = "ccom"
	AttrCameraInternalURL        = "ciu"
	AttrCameraInternalURLSD      = "cius"
	AttrCameraExternalURL        = "ceu"
	AttrCameraExternalURLSD      = "ceus"
	AttrDeterOnDuty              = "dod"
	AttrDingDong                 = "dng"
	AttrUsername                 = "un"
	AttrPassword                 = "pswd"
	AttrVisitorDetected          = "vdt"
	AttrWirelessSignalStrength   = "wiss"
)

// Lock, switch and thermostat attribute keys.
const (
	AttrUserCodeList = "ucl"
	AttrValue        = "val"

	AttrCoolSetPoint       = "csp"
	AttrHeatSetPoint       = "hsp"
	AttrCurrentTemperature = "ct"
	AttrFanMode            = "fm"
	AttrFanState           = "fs"
	AttrOperatingMode      = "om"
	AttrOperatingState     = "os"
	AttrHumidity           = "hmdt"
	AttrHoldMode           = "hm"
	AttrMaximumTemperature = "maxt"
	AttrMinimumTemperature = "mint"
)

// Wireless sensor attribute keys.
const (
	AttrEquipmentCode         = "ec"
	AttrEquipmentType         = "eqt"
	AttrSensorType            = "set"
	AttrSensorFirmwareVersion = "sv"
	AttrHidden                = "hidden"
)

// Panel attribute keys.
const (
	AttrMACAddress = "mac"
)

// Per-site user attribute keys. AttrUserAddLock is a push-only sentinel:
// a message carrying it appends the lock id to the user's lock list.
const (
	AttrUserLockIDs      = "lids"
	AttrUserAddLock      = AttrUserLockIDs + ".1"
	AttrUserHasLockPin   = "hlp"
	AttrUserHasPanelPin  = "hpp"
	AttrUserHasPins      = "hp"
	AttrUserRemoteAccess = "ra"
	AttrUserRegistered   = "reg"
)

// Panel credential and software update keys.
const (
	AttrCredentialName     = "n"
	AttrCredentialPassword = "pswd"

	AttrUpdateAvailable        = "available"
	AttrUpdateAvailableVersion = "available_version"
	AttrUpdateCurrentVersion   = "current_version"
	AttrUpdateReason           = "update_reason"
)

// Event names emitted on entities.
const (
	EventUpdate           = "update"
	EventDeviceDiscovered = "device_discovered"
	EventDeviceDeleted    = "device_deleted"
	EventThumbnailReady   = "thumbnail_ready"
	EventDoorbellDing     = "doorbell_ding"
	EventVideoReady       = "video_ready"
	EventMotionDetected   = "motion_detected"
	EventCaptureSaved     = "capture_saved"
)

// Payload key carrying the originating device on device-scoped events.
const EventKeyDevice = "device"
