package services

import (
	"fmt"

	"schoolbus/internal/domain"
	"schoolbus/internal/domain/models"
)

// ComputeDeltas mengagregasi perubahan netto counter per bus untuk satu batch.
// Delta dihitung per batch, bukan per perpindahan, supaya swap yang saling
// meniadakan tidak ditolak oleh pengecekan sekuensial yang naif.
func ComputeDeltas(plans []models.ReassignmentPlan) map[domain.ID]models.LoadDelta {
	deltas := map[domain.ID]models.LoadDelta{}
	for _, p := range plans {
		from := deltas[p.FromBusID]
		to := deltas[p.ToBusID]
		if p.Shift == domain.ShiftMorning {
			from.Morning--
			to.Morning++
		} else {
			from.Evening--
			to.Evening++
		}
		deltas[p.FromBusID] = from
		deltas[p.ToBusID] = to
	}
	// Siswa yang "pindah" ke bus yang sama menghasilkan delta nol; biarkan,
	// pengecekan di bawah memang mengabaikan delta nol.
	return deltas
}

// ApplyDelta menghitung counter baru dengan clamp di nol.
func ApplyDelta(load models.BusLoad, d models.LoadDelta) models.BusLoad {
	out := models.BusLoad{
		MorningCount: load.MorningCount + d.Morning,
		EveningCount: load.EveningCount + d.Evening,
	}
	if out.MorningCount < 0 {
		out.MorningCount = 0
	}
	if out.EveningCount < 0 {
		out.EveningCount = 0
	}
	return out
}

// CheckDeltas memvalidasi delta batch terhadap state bus yang BARU dibaca di
// dalam transaksi. Aturan:
//   - bus yang disebut delta harus ada;
//   - hanya penambahan yang dicek; bus yang kehilangan penumpang tidak
//     pernah ditolak;
//   - penambahan tidak boleh membuat morning+evening melewati kapasitas;
//   - penambahan morning butuh mode morning/both, penambahan evening butuh
//     mode both.
//
// Error pertama yang ditemukan menggagalkan seluruh batch.
func CheckDeltas(buses map[domain.ID]models.Bus, deltas map[domain.ID]models.LoadDelta) error {
	for busID, d := range deltas {
		if d.IsZero() {
			continue
		}
		bus, ok := buses[busID]
		if !ok {
			return domain.NotFoundError{Resource: fmt.Sprintf("bus %d", busID)}
		}

		if d.Morning > 0 && !bus.ShiftMode.AcceptsMorning() {
			return domain.ValidationError{Msg: fmt.Sprintf(
				"bus %s tidak melayani shift pagi (mode: %s)", bus.BusNumber, bus.ShiftMode)}
		}
		if d.Evening > 0 && !bus.ShiftMode.AcceptsEvening() {
			return domain.ValidationError{Msg: fmt.Sprintf(
				"bus %s tidak melayani penambahan shift sore (mode: %s)", bus.BusNumber, bus.ShiftMode)}
		}

		if d.Morning > 0 || d.Evening > 0 {
			next := ApplyDelta(bus.Load, d)
			if next.Total() > bus.Capacity {
				return domain.ValidationError{Msg: fmt.Sprintf(
					"kapasitas bus %s terlampaui: kapasitas %d, okupansi diminta %d (pagi %d + sore %d)",
					bus.BusNumber, bus.Capacity, next.Total(), next.MorningCount, next.EveningCount)}
			}
		}
	}
	return nil
}
