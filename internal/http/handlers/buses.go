package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"schoolbus/internal/domain"
	"schoolbus/internal/domain/models"
	"schoolbus/internal/repositories"

	"github.com/gin-gonic/gin"
	"github.com/go-sql-driver/mysql"
)

type busPayload struct {
	BusNumber string `json:"busNumber" binding:"required"`
	Capacity  int    `json:"capacity" binding:"required"`
	ShiftMode string `json:"shiftMode" binding:"required"`
	RouteID   int64  `json:"routeId"`
	Status    string `json:"status"`
}

func parseShiftMode(raw string) (domain.ShiftMode, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "morning":
		return domain.ShiftModeMorning, true
	case "evening":
		return domain.ShiftModeEvening, true
	case "both":
		return domain.ShiftModeBoth, true
	}
	return "", false
}

// GET /api/buses?q=B-01&page=1&limit=50
func GetBuses(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	repo := repositories.BusRepository{}
	list, err := repo.List(q, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "gagal mengambil data bus: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

// GET /api/buses/:id
func GetBusByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id tidak valid"})
		return
	}

	repo := repositories.BusRepository{}
	bus, err := repo.GetByID(domain.ID(id))
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "bus tidak ditemukan"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "gagal mengambil data bus: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, bus)
}

// POST /api/buses
func CreateBus(c *gin.Context) {
	var payload busPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "data tidak valid", "detail": err.Error()})
		return
	}

	mode, ok := parseShiftMode(payload.ShiftMode)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "shiftMode harus morning/evening/both"})
		return
	}
	if payload.Capacity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "capacity harus lebih dari 0"})
		return
	}

	repo := repositories.BusRepository{}
	id, err := repo.Create(models.Bus{
		BusNumber: payload.BusNumber,
		Capacity:  payload.Capacity,
		ShiftMode: mode,
		RouteID:   domain.ID(payload.RouteID),
		Status:    payload.Status,
	})
	if err != nil {
		if me, ok := err.(*mysql.MySQLError); ok && me.Number == 1062 {
			c.JSON(http.StatusConflict, gin.H{"error": "Nomor bus sudah terdaftar (duplikat)."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "gagal menambah bus: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "bus berhasil ditambahkan", "id": id})
}

// PUT /api/buses/:id
// Counter okupansi TIDAK bisa diubah dari sini; hanya executor yang menulisnya.
func UpdateBus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id tidak valid"})
		return
	}

	var payload busPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "data tidak valid", "detail": err.Error()})
		return
	}

	mode, ok := parseShiftMode(payload.ShiftMode)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "shiftMode harus morning/evening/both"})
		return
	}

	repo := repositories.BusRepository{}
	err = repo.Update(models.Bus{
		ID:        domain.ID(id),
		BusNumber: payload.BusNumber,
		Capacity:  payload.Capacity,
		ShiftMode: mode,
		RouteID:   domain.ID(payload.RouteID),
		Status:    payload.Status,
	})
	if err != nil {
		if domain.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "bus tidak ditemukan"})
			return
		}
		if me, ok := err.(*mysql.MySQLError); ok && me.Number == 1062 {
			c.JSON(http.StatusConflict, gin.H{"error": "Nomor bus sudah terdaftar (duplikat)."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "gagal update bus: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "bus berhasil diupdate"})
}

// DELETE /api/buses/:id
// Bus yang masih dirujuk siswa aktif tidak boleh dihapus.
func DeleteBus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id tidak valid"})
		return
	}

	repo := repositories.BusRepository{}
	n, err := repo.CountStudents(domain.ID(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "gagal cek siswa aktif: " + err.Error()})
		return
	}
	if n > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "bus masih dipakai " + strconv.Itoa(n) + " siswa, pindahkan dulu"})
		return
	}

	if err := repo.Delete(domain.ID(id)); err != nil {
		if domain.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "bus tidak ditemukan"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "gagal hapus bus: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "bus berhasil dihapus"})
}
