package services

import (
	"schoolbus/internal/domain/models"
	"schoolbus/internal/repositories"
)

// Dispatcher adalah kolaborator eksternal pengiriman notifikasi. Engine tidak
// menunggu konfirmasi delivery; satu panggilan per siswa terdampak.
type Dispatcher interface {
	Dispatch(n models.Notification) error
}

// OutboxDispatcher menulis notifikasi ke tabel outbox; worker lain yang
// mengirim ke device.
type OutboxDispatcher struct {
	Repo repositories.NotificationRepository
}

func (d OutboxDispatcher) Dispatch(n models.Notification) error {
	return d.Repo.Insert(n)
}
