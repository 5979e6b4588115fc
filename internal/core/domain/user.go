package domain

import "time"

const DefaultRole = "MEMBER"

type User struct {
	ID             string
	Email          string
	PasswordHash   string
	Name           string
	Role           string
	OrganizationID string
	CreatedAt      time.Time
}

type Organization struct {
	ID        string
	Name      string
	Industry  string
	CreatedAt time.Time
}
