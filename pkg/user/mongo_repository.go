package user

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// userDoc is the MongoDB document shape for User. Ids are stored as
// canonical uuid strings.
type userDoc struct {
	ID                  string    `bson:"_id"`
	Email               string    `bson:"email"`
	PasswordHash        string    `bson:"password_hash"`
	Name                string    `bson:"name"`
	DateOfBirth         time.Time `bson:"date_of_birth"`
	EmailVerifyToken    string    `bson:"email_verify_token"`
	ForgotPasswordToken string    `bson:"forgot_password_token"`
	VerifyStatus        int       `bson:"verify_status"`
	CreatedAt           time.Time `bson:"created_at"`
	UpdatedAt           time.Time `bson:"updated_at"`
}

type refreshTokenDoc struct {
	UserID    string    `bson:"user_id"`
	Token     string    `bson:"token"`
	CreatedAt time.Time `bson:"created_at"`
}

func toUserDoc(u User) userDoc {
	return userDoc{
		ID:                  u.ID.String(),
		Email:               u.Email,
		PasswordHash:        u.PasswordHash,
		Name:                u.Name,
		DateOfBirth:         u.DateOfBirth,
		EmailVerifyToken:    u.EmailVerifyToken,
		ForgotPasswordToken: u.ForgotPasswordToken,
		VerifyStatus:        int(u.VerifyStatus),
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}

func (d userDoc) toUser() (User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return User{}, err
	}
	return User{
		ID:                  id,
		Email:               d.Email,
		PasswordHash:        d.PasswordHash,
		Name:                d.Name,
		DateOfBirth:         d.DateOfBirth,
		EmailVerifyToken:    d.EmailVerifyToken,
		ForgotPasswordToken: d.ForgotPasswordToken,
		VerifyStatus:        VerifyStatus(d.VerifyStatus),
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}, nil
}

// MongoUserRepository implements UserRepository backed by a MongoDB collection
type MongoUserRepository struct {
	coll *mongo.Collection
}

// NewMongoUserRepository creates a new user repository on the given collection
func NewMongoUserRepository(db *mongo.Database, collectionName string) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection(collectionName)}
}

// EnsureIndexes creates the unique email index. Call once at startup.
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *MongoUserRepository) Create(ctx context.Context, u User) error {
	_, err := r.coll.InsertOne(ctx, toUserDoc(u))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailExists
		}
		slog.Error("Failed to insert user", "err", err)
		return err
	}
	return nil
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (User, error) {
	var doc userDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return User{}, ErrUserNotFound
		}
		slog.Error("Failed to find user", "err", err)
		return User{}, err
	}
	return doc.toUser()
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepository) GetByEmailAndPassword(ctx context.Context, email, passwordHash string) (User, error) {
	return r.findOne(ctx, bson.M{"email": email, "password_hash": passwordHash})
}

func (r *MongoUserRepository) updateOne(ctx context.Context, id uuid.UUID, set bson.M) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id.String()}, bson.M{"$set": set})
	if err != nil {
		slog.Error("Failed to update user", "user_id", id, "err", err)
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *MongoUserRepository) SetVerified(ctx context.Context, id uuid.UUID) error {
	return r.updateOne(ctx, id, bson.M{
		"email_verify_token": "",
		"verify_status":      int(VerifyStatusVerified),
		"updated_at":         time.Now().UTC(),
	})
}

func (r *MongoUserRepository) SetEmailVerifyToken(ctx context.Context, id uuid.UUID, token string) error {
	return r.updateOne(ctx, id, bson.M{
		"email_verify_token": token,
		"updated_at":         time.Now().UTC(),
	})
}

func (r *MongoUserRepository) SetForgotPasswordToken(ctx context.Context, id uuid.UUID, token string) error {
	return r.updateOne(ctx, id, bson.M{
		"forgot_password_token": token,
		"updated_at":            time.Now().UTC(),
	})
}

func (r *MongoUserRepository) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.updateOne(ctx, id, bson.M{
		"password_hash":         passwordHash,
		"forgot_password_token": "",
		"updated_at":            time.Now().UTC(),
	})
}

// MongoRefreshTokenRepository implements RefreshTokenRepository backed by MongoDB
type MongoRefreshTokenRepository struct {
	coll *mongo.Collection
}

// NewMongoRefreshTokenRepository creates a new refresh token repository on the given collection
func NewMongoRefreshTokenRepository(db *mongo.Database, collectionName string) *MongoRefreshTokenRepository {
	return &MongoRefreshTokenRepository{coll: db.Collection(collectionName)}
}

// EnsureIndexes creates the unique token index and the created_at index used
// by the sweep. Call once at startup.
func (r *MongoRefreshTokenRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "created_at", Value: 1}},
		},
	})
	return err
}

func (r *MongoRefreshTokenRepository) Create(ctx context.Context, rt RefreshToken) error {
	_, err := r.coll.InsertOne(ctx, refreshTokenDoc{
		UserID:    rt.UserID.String(),
		Token:     rt.Token,
		CreatedAt: rt.CreatedAt,
	})
	if err != nil {
		slog.Error("Failed to insert refresh token", "user_id", rt.UserID, "err", err)
	}
	return err
}

func (r *MongoRefreshTokenRepository) GetByToken(ctx context.Context, token string) (RefreshToken, error) {
	var doc refreshTokenDoc
	err := r.coll.FindOne(ctx, bson.M{"token": token}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return RefreshToken{}, ErrTokenNotFound
		}
		slog.Error("Failed to find refresh token", "err", err)
		return RefreshToken{}, err
	}
	userID, err := uuid.Parse(doc.UserID)
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{UserID: userID, Token: doc.Token, CreatedAt: doc.CreatedAt}, nil
}

func (r *MongoRefreshTokenRepository) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"token": token})
	if err != nil {
		slog.Error("Failed to delete refresh token", "err", err)
	}
	return err
}

func (r *MongoRefreshTokenRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		slog.Error("Failed to sweep refresh tokens", "err", err)
		return 0, err
	}
	return res.DeletedCount, nil
}
