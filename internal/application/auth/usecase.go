package auth

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/almacen-wms/internal/application/dto"
	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
	"github.com/jhoicas/almacen-wms/pkg/jwt"
)

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// AuthUseCase casos de uso de autenticación: registro y login.
type AuthUseCase struct {
	tx     repository.TxRunner
	jwtCfg JWTConfig
	cost   int
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(tx repository.TxRunner, jwtCfg JWTConfig) *AuthUseCase {
	return &AuthUseCase{tx: tx, jwtCfg: jwtCfg, cost: bcrypt.DefaultCost}
}

// WithCost cambia el coste de bcrypt (tests y seed).
func (uc *AuthUseCase) WithCost(cost int) *AuthUseCase {
	uc.cost = cost
	return uc
}

// RegisterUser crea un usuario: hashea password con bcrypt y persiste.
// Devuelve ErrEmailAlreadyExists si el email ya existe.
func (uc *AuthUseCase) RegisterUser(ctx context.Context, in dto.CreateUserRequest) (*dto.UserResponse, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || len(in.Password) < 8 {
		return nil, domain.Invalid("email y password (mínimo 8 caracteres) son obligatorios")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), uc.cost)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = email
	}
	user := &entity.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
	}
	err = uc.tx.Run(ctx, func(s repository.Stores) error {
		existing, err := s.Users.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrEmailAlreadyExists
		}
		return s.Users.Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

// Login verifica email/password, genera JWT y retorna token + usuario.
// Email desconocido y password incorrecta devuelven el mismo error.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	var user *entity.User
	err := uc.tx.View(ctx, func(s repository.Stores) error {
		var err error
		user, err = s.Users.FindByEmail(ctx, email)
		return err
	})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.Unauthorized("credenciales inválidas")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.Unauthorized("credenciales inválidas")
	}
	token, err := jwt.Generate(uc.jwtCfg.Secret, user.ID, in.OrganizationID, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		Token: token,
		User:  *toUserResponse(user),
	}, nil
}

func toUserResponse(u *entity.User) *dto.UserResponse {
	if u == nil {
		return nil
	}
	return &dto.UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
}
