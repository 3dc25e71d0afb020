package handler

import (
	"encoding/hex"
	"strconv"
	"time"

	"github.com/harborfi/vaultguard/internal/domain"
)

// Wire representations of registry records. Addresses and hashes render as
// 0x-hex, byte payloads as 0x-hex blobs, and uint64 volume figures as decimal
// strings because JSON numbers cannot carry the unlimited-cap sentinel.

type positionJSON struct {
	ID                uint32    `json:"id"`
	AdaptorRef        string    `json:"adaptor_ref"`
	IsDebt            bool      `json:"is_debt"`
	AdaptorData       string    `json:"adaptor_data"`
	ConfigurationData string    `json:"configuration_data,omitempty"`
	Hash              string    `json:"hash"`
	Trusted           bool      `json:"trusted"`
	TrustedAt         time.Time `json:"trusted_at"`
}

func toPositionJSON(rec domain.PositionRecord) positionJSON {
	return positionJSON{
		ID:                uint32(rec.ID),
		AdaptorRef:        rec.AdaptorRef.Hex(),
		IsDebt:            rec.IsDebt,
		AdaptorData:       "0x" + hex.EncodeToString(rec.AdaptorData),
		ConfigurationData: "0x" + hex.EncodeToString(rec.ConfigurationData),
		Hash:              rec.Hash.Hex(),
		Trusted:           rec.Trusted,
		TrustedAt:         rec.TrustedAt,
	}
}

type adaptorJSON struct {
	Ref        string    `json:"ref"`
	Identifier string    `json:"identifier"`
	IsDebt     bool      `json:"is_debt"`
	Trusted    bool      `json:"trusted"`
	TrustedAt  time.Time `json:"trusted_at"`
}

func toAdaptorJSON(entry domain.AdaptorTrustEntry) adaptorJSON {
	return adaptorJSON{
		Ref:        entry.Ref.Hex(),
		Identifier: entry.Identifier.Hex(),
		IsDebt:     entry.IsDebt,
		Trusted:    entry.Trusted,
		TrustedAt:  entry.TrustedAt,
	}
}

type fundJSON struct {
	Address      string    `json:"address"`
	Paused       bool      `json:"paused"`
	RegisteredAt time.Time `json:"registered_at"`
}

func toFundJSON(rec domain.FundRecord) fundJSON {
	return fundJSON{
		Address:      rec.Address.Hex(),
		Paused:       rec.Paused,
		RegisteredAt: rec.RegisteredAt,
	}
}

type volumeWindowJSON struct {
	Fund          string    `json:"fund"`
	LastUpdate    time.Time `json:"last_update"`
	PeriodSeconds int64     `json:"period_seconds"`
	VolumeInUSD   string    `json:"volume_in_usd"`
	MaxVolume     string    `json:"max_volume"`
	Unlimited     bool      `json:"unlimited"`
}

func toVolumeWindowJSON(w domain.FundVolumeWindow) volumeWindowJSON {
	return volumeWindowJSON{
		Fund:          w.Fund.Hex(),
		LastUpdate:    w.LastUpdate,
		PeriodSeconds: int64(w.Period / time.Second),
		VolumeInUSD:   strconv.FormatUint(w.VolumeInUSD, 10),
		MaxVolume:     strconv.FormatUint(w.MaxVolume, 10),
		Unlimited:     w.MaxVolume == domain.UnlimitedVolume,
	}
}

type transitionJSON struct {
	Pending       bool      `json:"pending"`
	PendingOwner  string    `json:"pending_owner,omitempty"`
	StartedAt     time.Time `json:"started_at,omitzero"`
	CompletableAt time.Time `json:"completable_at,omitzero"`
}

func toTransitionJSON(t domain.GovernanceTransition) transitionJSON {
	out := transitionJSON{Pending: t.Pending()}
	if t.Pending() {
		out.PendingOwner = t.PendingOwner.Hex()
		out.StartedAt = t.StartedAt
		out.CompletableAt = t.StartedAt.Add(domain.TransitionPeriod)
	}
	return out
}
