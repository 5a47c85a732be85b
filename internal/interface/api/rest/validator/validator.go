package validator

import (
	"errors"
	"regexp"
	"strconv"
)

const defaultSweepMaxAgeMinutes = 1440

// external ids are UUIDv4 rendered as lowercase unpadded base32
var externalIDRe = regexp.MustCompile(`^[0-9a-v]{26}$`)

func IsExternalID(s string) bool {
	return externalIDRe.MatchString(s)
}

// ValidateOwnerPair enforces the both-or-neither contract on the owner
// fields and normalizes them to pointers for the pending case.
func ValidateOwnerPair(ownerType, ownerRef string) (*string, *string, error) {
	switch {
	case ownerType == "" && ownerRef == "":
		return nil, nil, nil
	case ownerType != "" && ownerRef != "":
		return &ownerType, &ownerRef, nil
	default:
		return nil, nil, errors.New("owner_type and owner_ref must be supplied together")
	}
}

func ValidateMaxAge(maxAge string) (int, error) {
	if maxAge == "" {
		return defaultSweepMaxAgeMinutes, nil
	}
	n, err := strconv.Atoi(maxAge)
	if err != nil || n < 0 {
		return 0, errors.New("max_age_minutes must be a non-negative integer")
	}
	return n, nil
}
