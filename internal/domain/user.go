package domain

import "time"

type User struct {
	ID             int       `json:"id"`
	Email          string    `json:"email"`
	Password       string    `json:"-"` // never returned in JSON
	Name           string    `json:"name"`
	CarPlateNumber string    `json:"car_plate_number,omitempty"`
	Role           string    `json:"role"` // "admin", "driver"
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type RegisterUserDTO struct {
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,min=6,max=100"`
	Name           string `json:"name" binding:"required,min=2,max=100"`
	CarPlateNumber string `json:"car_plate_number"`
	Role           string `json:"role,omitempty"`
}

type LoginUserDTO struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileDTO struct {
	Name           string `json:"name"`
	CarPlateNumber string `json:"car_plate_number"`
}

type AuthResponseDTO struct {
	Token  string `json:"token"`
	UserID int    `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}
