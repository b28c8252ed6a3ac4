package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"schoolbus/internal/domain"
	"schoolbus/internal/repositories"

	"github.com/gin-gonic/gin"
)

// GET /api/students?busId=3&shift=morning
func GetStudents(c *gin.Context) {
	busID, _ := strconv.ParseInt(strings.TrimSpace(c.Query("busId")), 10, 64)

	repo := repositories.StudentRepository{}
	list, err := repo.List(repositories.StudentFilter{
		BusID: domain.ID(busID),
		Shift: c.Query("shift"),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "gagal mengambil data siswa: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

// GET /api/students/:id
func GetStudentByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id tidak valid"})
		return
	}

	repo := repositories.StudentRepository{}
	student, err := repo.GetByID(domain.ID(id))
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "siswa tidak ditemukan"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "gagal mengambil data siswa: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, student)
}
