package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"mercadito-api/middleware"
	"mercadito-api/models"
	"mercadito-api/store"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type registerInput struct {
	Nombre     string      `json:"nombre"`
	Email      string      `json:"email"`
	Contrasena string      `json:"contrasena"`
	Rol        models.Role `json:"rol"`
}

func (in *registerInput) normalize() {
	in.Nombre = strings.TrimSpace(in.Nombre)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
}

func (in registerInput) complete() bool {
	return in.Nombre != "" && in.Email != "" && in.Contrasena != ""
}

func newUser(in registerInput) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Contrasena), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &models.User{
		ID:        store.NewID(),
		Nombre:    in.Nombre,
		Email:     in.Email,
		Password:  string(hash),
		Rol:       in.Rol,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (a *API) Register(c *gin.Context) {
	var input registerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Datos inválidos"})
		return
	}
	input.normalize()
	if !input.complete() {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Nombre, email y contraseña son requeridos"})
		return
	}
	if input.Rol == "" {
		input.Rol = models.RoleUser
	}
	// Admins are only created through /admin/create-user.
	if input.Rol != models.RoleUser && input.Rol != models.RoleSeller {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Rol inválido"})
		return
	}

	ctx, cancel := a.ctx(c)
	defer cancel()

	if _, err := a.Stores.Users.FindByEmail(ctx, input.Email); err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "El usuario ya está registrado"})
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		a.fail(c, err, "", "Error en el servidor")
		return
	}

	user, err := newUser(input)
	if err != nil {
		a.fail(c, err, "", "Error al procesar contraseña")
		return
	}
	if err := a.Stores.Users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "El usuario ya está registrado"})
			return
		}
		a.fail(c, err, "", "Error en el servidor")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Usuario registrado correctamente"})
}

func (a *API) Login(c *gin.Context) {
	var creds struct {
		Email      string `json:"email"`
		Contrasena string `json:"contrasena"`
	}
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Datos inválidos"})
		return
	}

	ctx, cancel := a.ctx(c)
	defer cancel()

	user, err := a.Stores.Users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(creds.Email)))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Credenciales incorrectas"})
		return
	}
	if err != nil {
		a.fail(c, err, "", "Error en el servidor")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(creds.Contrasena)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Credenciales incorrectas"})
		return
	}

	token, err := a.Tokens.Issue(user)
	if err != nil {
		a.fail(c, err, "", "Error en el servidor")
		return
	}

	middleware.SetAuthCookie(c, token, a.Tokens.TTL(), a.Config.Production())
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (a *API) Logout(c *gin.Context) {
	middleware.ClearAuthCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Sesión cerrada correctamente"})
}

func (a *API) Profile(c *gin.Context) {
	ctx, cancel := a.ctx(c)
	defer cancel()

	user, err := a.Stores.Users.FindByID(ctx, identity(c).ID)
	if err != nil {
		a.fail(c, err, "Usuario no encontrado", "Error al obtener el perfil")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (a *API) UpdateProfile(c *gin.Context) {
	var input struct {
		Nombre     *string `json:"nombre"`
		Email      *string `json:"email"`
		Contrasena *string `json:"contrasena"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Datos inválidos"})
		return
	}

	ctx, cancel := a.ctx(c)
	defer cancel()

	user, err := a.Stores.Users.FindByID(ctx, identity(c).ID)
	if err != nil {
		a.fail(c, err, "Usuario no encontrado", "Error al actualizar perfil")
		return
	}

	if input.Nombre != nil && strings.TrimSpace(*input.Nombre) != "" {
		user.Nombre = strings.TrimSpace(*input.Nombre)
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email != "" && email != user.Email {
			if _, err := a.Stores.Users.FindByEmail(ctx, email); err == nil {
				c.JSON(http.StatusBadRequest, gin.H{"message": "El email ya está registrado"})
				return
			} else if !errors.Is(err, store.ErrNotFound) {
				a.fail(c, err, "", "Error al actualizar perfil")
				return
			}
			user.Email = email
		}
	}
	if input.Contrasena != nil && *input.Contrasena != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*input.Contrasena), bcrypt.DefaultCost)
		if err != nil {
			a.fail(c, err, "", "Error al procesar contraseña")
			return
		}
		user.Password = string(hash)
	}

	if err := a.Stores.Users.Save(ctx, user); err != nil {
		// The unique email index can still reject a concurrent change.
		if errors.Is(err, store.ErrDuplicate) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "El email ya está registrado"})
			return
		}
		a.fail(c, err, "Usuario no encontrado", "Error al actualizar perfil")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (a *API) DeleteAccount(c *gin.Context) {
	ctx, cancel := a.ctx(c)
	defer cancel()

	if err := a.Stores.Users.Delete(ctx, identity(c).ID); err != nil {
		a.fail(c, err, "Usuario no encontrado", "Error al eliminar cuenta")
		return
	}
	middleware.ClearAuthCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Cuenta eliminada correctamente"})
}

// AdminCreateUser is guarded by the X-Admin-Secret header instead of a token
// so the first admin can be bootstrapped.
func (a *API) AdminCreateUser(c *gin.Context) {
	expected := a.Config.AdminSecret
	if expected == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Servidor mal configurado: ADMIN_SECRET_KEY no definido"})
		return
	}
	provided := c.GetHeader("X-Admin-Secret")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
		c.JSON(http.StatusForbidden, gin.H{"message": "Acceso denegado"})
		return
	}

	var input registerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Datos inválidos"})
		return
	}
	input.normalize()
	if !input.complete() {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Nombre, email y contraseña son requeridos"})
		return
	}
	if input.Rol == "" {
		input.Rol = models.RoleUser
	}
	if !input.Rol.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Rol inválido"})
		return
	}

	ctx, cancel := a.ctx(c)
	defer cancel()

	user, err := newUser(input)
	if err != nil {
		a.fail(c, err, "", "Error al procesar contraseña")
		return
	}
	if err := a.Stores.Users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"message": "El email ya está registrado"})
			return
		}
		a.fail(c, err, "", "Error al registrar usuario")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Usuario creado exitosamente",
		"userId":  user.ID,
	})
}
