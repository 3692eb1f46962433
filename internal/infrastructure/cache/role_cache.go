package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jhoicas/almacen-wms/internal/application/authz"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/pkg/config"
)

const (
	defaultRoleTTL = 5 * time.Minute
	roleKeyPrefix  = "wms:roles:"
	genKeyPrefix   = "wms:roles:gen:"
	genTTL         = 24 * time.Hour
)

var _ authz.RoleCache = (*RoleCache)(nil)

var errStale = errors.New("generación de roles obsoleta")

// RoleCache caché de asignaciones de roles en Redis, una clave JSON por usuario.
type RoleCache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewClient abre el cliente Redis y comprueba la conexión con un PING.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// NewRoleCache construye la caché sobre un cliente existente; el llamador conserva su propiedad.
func NewRoleCache(client *redis.Client, ttl time.Duration, log zerolog.Logger) *RoleCache {
	if ttl <= 0 {
		ttl = defaultRoleTTL
	}
	return &RoleCache{client: client, ttl: ttl, log: log}
}

func roleKey(userID int64) string {
	return fmt.Sprintf("%s%d", roleKeyPrefix, userID)
}

func genKey(userID int64) string {
	return fmt.Sprintf("%s%d", genKeyPrefix, userID)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readGen(ctx context.Context, c getter, key string) (int64, error) {
	gen, err := c.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get %s: %w", key, err)
	}
	return gen, nil
}

// Get devuelve ok=false si la clave no existe. Una entrada corrupta se borra y cuenta como fallo.
func (c *RoleCache) Get(ctx context.Context, userID int64) ([]*entity.RoleAssignment, bool, error) {
	key := roleKey(userID)
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	var assignments []*entity.RoleAssignment
	if err := json.Unmarshal(data, &assignments); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("entrada de roles corrupta, se descarta")
		_ = c.client.Del(ctx, key).Err()
		return nil, false, nil
	}
	return assignments, true, nil
}

// Generation devuelve la generación actual del usuario (0 si nunca se invalidó).
func (c *RoleCache) Generation(ctx context.Context, userID int64) (int64, error) {
	return readGen(ctx, c.client, genKey(userID))
}

// Set guarda las asignaciones con el TTL configurado si la generación del usuario sigue siendo
// generation. WATCH sobre la clave de generación descarta la escritura si un Invalidate
// concurrente la avanza entre la comprobación y el EXEC. Una lista vacía también se guarda.
func (c *RoleCache) Set(ctx context.Context, userID, generation int64, assignments []*entity.RoleAssignment) error {
	if assignments == nil {
		assignments = []*entity.RoleAssignment{}
	}
	data, err := json.Marshal(assignments)
	if err != nil {
		return fmt.Errorf("marshal roles: %w", err)
	}
	gk := genKey(userID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readGen(ctx, tx, gk)
		if err != nil {
			return err
		}
		if current != generation {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, roleKey(userID), data, c.ttl)
			return nil
		})
		return err
	}, gk)
	if errors.Is(err, errStale) || errors.Is(err, redis.TxFailedErr) {
		c.log.Debug().Int64("user_id", userID).Int64("generation", generation).Msg("roles obsoletos, no se guardan")
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate avanza la generación del usuario y borra su entrada en una sola transacción.
func (c *RoleCache) Invalidate(ctx context.Context, userID int64) error {
	gk := genKey(userID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, gk)
		pipe.Expire(ctx, gk, genTTL)
		pipe.Del(ctx, roleKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate: %w", err)
	}
	return nil
}
