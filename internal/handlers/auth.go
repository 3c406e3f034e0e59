package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opencampus-io/registrar-backend/internal/requestdata"
	"github.com/opencampus-io/registrar-backend/internal/services"
	"github.com/opencampus-io/registrar-backend/internal/types"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type userView struct {
	ID        string                  `json:"id"`
	Email     string                  `json:"email"`
	Name      string                  `json:"name"`
	Role      types.Role              `json:"role"`
	Student   *types.StudentProfile   `json:"student_profile,omitempty"`
	Professor *types.ProfessorProfile `json:"professor_profile,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
}

func toUserView(user *types.User) userView {
	return userView{
		ID:        user.ID.String(),
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		Student:   user.StudentProfile,
		Professor: user.ProfessorProfile,
		CreatedAt: user.CreatedAt,
	}
}

func (ah *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email           string `json:"email"`
		Password        string `json:"password"`
		Name            string `json:"name"`
		Role            string `json:"role"`
		StudentNumber   string `json:"student_number"`
		Major           string `json:"major"`
		Year            int    `json:"year"`
		ProfessorNumber string `json:"professor_number"`
		Department      string `json:"department"`
		Title           string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	user, token, err := ah.authService.Register(c.Request.Context(), services.RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		Name:            req.Name,
		Role:            types.Role(req.Role),
		StudentNumber:   req.StudentNumber,
		Major:           req.Major,
		Year:            req.Year,
		ProfessorNumber: req.ProfessorNumber,
		Department:      req.Department,
		Title:           req.Title,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{
		"user":         toUserView(user),
		"access_token": token,
		"expires_in":   int(ah.authService.AccessTTL().Seconds()),
	})
}

func (ah *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	user, token, err := ah.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"user":         toUserView(user),
		"access_token": token,
		"expires_in":   int(ah.authService.AccessTTL().Seconds()),
	})
}

func (ah *AuthHandler) ChangePassword(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := ah.authService.ChangePassword(c.Request.Context(), rd.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "password changed"})
}

// Logout acknowledges the end of a session. Tokens are stateless and expire
// on their own; the client discards its copy.
func (ah *AuthHandler) Logout(c *gin.Context) {
	RespondOK(c, gin.H{"message": "logged out"})
}
