package model

import "time"

type Sector struct {
	ID   string
	Name string
}

type Role struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	SectorID   string `json:"sectorId"`
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Description  *string   `json:"description"`
	PasswordHash string    `json:"-"`
	ProfileImage *string   `json:"profileImage"`
	PhoneNumber  *string   `json:"phoneNumber"`
	SectorID     string    `json:"idSector"`
	RoleID       string    `json:"idRole"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Module is a route group the bootstrap mounts at Endpoint when Active.
type Module struct {
	Name     string
	Endpoint string
	Active   bool
}
