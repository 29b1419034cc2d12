package models

// Employee is a government employee who requests rides.
// Records are provisioned externally; this service only mutates MapLocation.
type Employee struct {
	ID                int    `json:"id"`
	Name              string `json:"name"`
	Password          string `json:"-"`
	Role              string `json:"role"`
	Contact           string `json:"contact"`
	AdditionalDetails string `json:"additional_details"`
	MapLocation       string `json:"map_location,omitempty"`
}

// DriverStatus is free text in the backing store but treated as a closed set here.
type DriverStatus string

const (
	StatusAvailable DriverStatus = "Available"
	StatusDriving   DriverStatus = "Driving"
	StatusAway      DriverStatus = "Away"
)

// ValidStatus reports whether s is one of the known driver statuses.
func ValidStatus(s DriverStatus) bool {
	switch s {
	case StatusAvailable, StatusDriving, StatusAway:
		return true
	}
	return false
}

type Driver struct {
	ID                int          `json:"id"`
	Name              string       `json:"name"`
	Password          string       `json:"-"`
	Status            DriverStatus `json:"status"`
	Contact           string       `json:"contact"`
	AdditionalDetails string       `json:"additional_details"`
	MapLocation       string       `json:"map_location,omitempty"`

	// RideRequests and Passengers are disjoint at all times: an employee
	// name lives in at most one of the two sets per driver.
	RideRequests []string `json:"ride_requests,omitempty"`
	Passengers   []string `json:"passengers,omitempty"`
}

// HasRequestFrom reports whether name has a pending ride request with d.
func (d *Driver) HasRequestFrom(name string) bool {
	return contains(d.RideRequests, name)
}

// HasPassenger reports whether name is a confirmed passenger of d.
func (d *Driver) HasPassenger(name string) bool {
	return contains(d.Passengers, name)
}

func contains(set []string, name string) bool {
	for _, s := range set {
		if s == name {
			return true
		}
	}
	return false
}
