package transport

import (
	"fmt"
	"strconv"
	"strings"
)

// FlexID accepts both `"7"` and `7` on the wire; the mobile clients have
// historically sent either.
type FlexID uint

func (f *FlexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid id %q", s)
	}
	*f = FlexID(n)
	return nil
}

func (f FlexID) Uint() uint { return uint(f) }

type DeviceLoginRequest struct {
	Token          string `json:"token"`
	DeviceName     string `json:"deviceName"`
	DeviceLocation string `json:"deviceLocation"`
}

type RefreshTokenRequest struct {
	DeviceID FlexID `json:"deviceId"`
	UserID   FlexID `json:"userId"`
}

type AuthenticateRequest struct {
	Token string `json:"token"`
}

type UserIDRequest struct {
	UserID FlexID `json:"userId"`
}

type AddCreditsRequest struct {
	UserID    FlexID `json:"userId"`
	Credits   int    `json:"credits"`
	PaymentID string `json:"paymentId"`
}

type WebAddCreditsRequest struct {
	Email   string `json:"email"`
	Credits int    `json:"credits"`
}

type WebDecreaseCreditsRequest struct {
	Email string `json:"email"`
}

type GeneratePhotoRequest struct {
	ImageURL      string `json:"imageUrl"`
	RoomType      string `json:"roomType"`
	Style         string `json:"style"`
	Customization string `json:"customization"`
	UserID        FlexID `json:"userId"`
	UserEmail     string `json:"userEmail"`
}

type VerifyUserRequest struct {
	User struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
		Image    string `json:"image"`
	} `json:"user"`
}

type RevokeDeviceRequest struct {
	DeviceID FlexID `json:"deviceId"`
}
