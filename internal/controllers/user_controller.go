package controllers

import (
	"net/http"

	"github.com/esilogis/backend/internal/services"
	"github.com/gin-gonic/gin"
)

type UserController struct {
	persons *services.PersonService
}

func NewUserController(persons *services.PersonService) *UserController {
	return &UserController{persons: persons}
}

type CreateUserRequest struct {
	Email     string  `json:"email" binding:"required,email"`
	Password  string  `json:"password" binding:"required,min=6"`
	FirstName string  `json:"firstName" binding:"required"`
	LastName  string  `json:"lastName" binding:"required"`
	Role      string  `json:"role" binding:"required"`
	Phone     *string `json:"phone"`
}

func (uc *UserController) CreateUser(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}
	person, err := uc.persons.CreatePerson(c.Request.Context(), a, services.CreatePersonInput(req))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, person)
}

// GetUsers lists accounts, optionally narrowed with ?role=.
func (uc *UserController) GetUsers(c *gin.Context) {
	persons, err := uc.persons.ListPersons(c.Request.Context(), c.Query("role"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, persons)
}

func (uc *UserController) GetTechnicians(c *gin.Context) {
	persons, err := uc.persons.ListTechnicians(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, persons)
}
