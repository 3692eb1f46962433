package domain

// Actor identifica a quien invoca un comando. Viaja explícito en cada operación;
// el motor nunca lo toma de estado global.
type Actor struct {
	UserID         int64
	OrganizationID int64 // 0 = cualquier organización
	RequestID      string
}
