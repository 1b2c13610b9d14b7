package service

import (
	"strings"

	"github.com/noah-isme/asrama-api/internal/models"
)

// MalformedRecord is a resident that could not be counted.
type MalformedRecord struct {
	Kind   models.ResidentKind `json:"kind"`
	NIM    string              `json:"nim"`
	Reason string              `json:"reason"`
}

// ReconcileResult is the outcome of one reconciliation pass.
type ReconcileResult struct {
	Rooms        []models.Room     `json:"-"`
	Changed      bool              `json:"changed"`
	OverCapacity []models.RoomRef  `json:"over_capacity"`
	Malformed    []MalformedRecord `json:"malformed"`
	// Unplaced lists living residents whose room is not in the directory.
	Unplaced []MalformedRecord `json:"unplaced"`
}

// Warnings renders the integrity issues as human readable lines.
func (r ReconcileResult) Warnings() []string {
	out := make([]string, 0, len(r.OverCapacity)+len(r.Malformed)+len(r.Unplaced))
	for _, ref := range r.OverCapacity {
		out = append(out, "room "+ref.String()+" is over capacity")
	}
	for _, m := range r.Malformed {
		out = append(out, strings.ToLower(string(m.Kind))+" "+m.NIM+": "+m.Reason)
	}
	for _, m := range r.Unplaced {
		out = append(out, strings.ToLower(string(m.Kind))+" "+m.NIM+": "+m.Reason)
	}
	return out
}

// Reconcile recomputes occupied and status for every room from the two
// resident collections. It is a full recompute with no side effects; the
// input slice is not modified. Over-capacity is recorded as-is, never
// clamped.
func Reconcile(rooms []models.Room, students, kasra []models.Resident) ReconcileResult {
	result := ReconcileResult{
		Rooms:        make([]models.Room, len(rooms)),
		OverCapacity: []models.RoomRef{},
		Malformed:    []MalformedRecord{},
		Unplaced:     []MalformedRecord{},
	}
	copy(result.Rooms, rooms)

	known := make(map[models.RoomRef]struct{}, len(rooms))
	for _, room := range rooms {
		known[room.Ref()] = struct{}{}
	}

	counts := make(map[models.RoomRef]int, len(rooms))
	tally := func(kind models.ResidentKind, residents []models.Resident) {
		for _, resident := range residents {
			if !resident.Living() {
				continue
			}
			if reason := malformedReason(resident); reason != "" {
				result.Malformed = append(result.Malformed, MalformedRecord{Kind: kind, NIM: resident.NIM, Reason: reason})
				continue
			}
			ref := resident.Room()
			if _, ok := known[ref]; !ok {
				result.Unplaced = append(result.Unplaced, MalformedRecord{Kind: kind, NIM: resident.NIM, Reason: "room " + ref.String() + " not in directory"})
				continue
			}
			counts[ref]++
		}
	}
	tally(models.KindKasra, kasra)
	tally(models.KindStudent, students)

	for i := range result.Rooms {
		room := &result.Rooms[i]
		total := counts[room.Ref()]
		status := deriveStatus(room.Status, total, room.Capacity)
		if total > room.Capacity {
			result.OverCapacity = append(result.OverCapacity, room.Ref())
		}
		if room.Occupied != total || room.Status != status {
			result.Changed = true
		}
		room.Occupied = total
		room.Status = status
	}
	return result
}

func malformedReason(r models.Resident) string {
	var missing []string
	if strings.TrimSpace(r.NIM) == "" {
		missing = append(missing, "nim")
	}
	if strings.TrimSpace(r.Building) == "" {
		missing = append(missing, "building")
	}
	if strings.TrimSpace(r.RoomNumber) == "" {
		missing = append(missing, "room_number")
	}
	if strings.TrimSpace(string(r.Gender)) == "" {
		missing = append(missing, "gender")
	}
	if len(missing) == 0 {
		return ""
	}
	return "missing " + strings.Join(missing, ", ")
}
