package kvstore

// Storage layout shared with the front end.
const (
	KeyCart           = "cartItems"
	KeyAuthToken      = "auth_token" // secure store
	KeyPlainToken     = "token"      // compatibility copy, plain store
	KeyPendingBooking = "pendingBookingData"
	KeyAdminToken     = "adminToken"
	KeyAdminUser      = "adminUser"
)
