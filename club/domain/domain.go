// Package domain holds the running-club data model: users, events, and
// registrations with their lateness status.
package domain

import "time"

// Role classifies what a user may do with the bot.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleMember  Role = "member"
	RoleBlocked Role = "blocked"
)

// CityAll is the sentinel city tag meaning "show events from every city".
const CityAll = "all"

// Lateness is a three-way status on a registration: -1 will not attend,
// 0 on time, positive = minutes late. Storage accepts any integer; the
// UI only offers the values in LatenessChoices.
const (
	LatenessAbsent = -1
	LatenessOnTime = 0
)

// LatenessChoices is the closed set offered as buttons.
var LatenessChoices = []int{LatenessAbsent, LatenessOnTime, 5, 10, 15}

// User is a club member keyed by their Telegram chat id. A row exists
// for every chat that has ever contacted the bot; profile fields stay
// empty until the registration dialogue completes.
type User struct {
	ID               int64  `db:"id"`
	Name             string `db:"name"`
	Phone            string `db:"phone"`
	EmergencyContact string `db:"emergency_contact"`
	City             string `db:"city"`
	Role             Role   `db:"role"`
}

// Registered reports whether the user has completed the profile dialogue.
func (u User) Registered() bool { return u.Name != "" }

// Event is a scheduled run. The photo is kept as a Telegram file id and
// re-sent by reference.
type Event struct {
	ID          int64     `db:"id"`
	City        string    `db:"city"`
	Description string    `db:"description"`
	Date        time.Time `db:"date"`
	Location    string    `db:"location"`
	Tempo       string    `db:"tempo"`
	PhotoID     string    `db:"photo_id"`
	Reminded    bool      `db:"reminded"`
}

// Registration links a user to an event. At most one row per pair;
// "unregister" is lateness -1, not row deletion.
type Registration struct {
	UserID   int64 `db:"user_id"`
	EventID  int64 `db:"event_id"`
	Lateness int   `db:"lateness"`
}

// Attending reports whether the registrant still plans to show up.
func (r Registration) Attending() bool { return r.Lateness >= 0 }
