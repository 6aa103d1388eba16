// Package mongo stores admin accounts as documents in MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/khabaroff/storefront-admin/src/models"
	"github.com/khabaroff/storefront-admin/src/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the collection holding admin account documents
const CollectionName = "admin_accounts"

type permissionsDocument struct {
	Products   bool `bson:"products"`
	Categories bool `bson:"categories"`
	Orders     bool `bson:"orders"`
	Customers  bool `bson:"customers"`
	Blogs      bool `bson:"blogs"`
}

type adminDocument struct {
	ID           string              `bson:"_id"`
	Username     string              `bson:"username"`
	UsernameKey  string              `bson:"username_key"`
	DisplayName  string              `bson:"display_name"`
	ProfileImage string              `bson:"profile_image"`
	PasswordHash string              `bson:"password_hash"`
	Role         string              `bson:"role"`
	Permissions  permissionsDocument `bson:"permissions"`
	CreatedAt    time.Time           `bson:"created_at"`
	UpdatedAt    time.Time           `bson:"updated_at"`
}

func toPermissionsDocument(p models.Permissions) permissionsDocument {
	return permissionsDocument(p)
}

func (d *adminDocument) toModel() (*models.AdminAccount, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("corrupt admin document id %q: %w", d.ID, err)
	}
	return &models.AdminAccount{
		ID:           id,
		Username:     d.Username,
		DisplayName:  d.DisplayName,
		ProfileImage: d.ProfileImage,
		PasswordHash: d.PasswordHash,
		Role:         models.Role(d.Role),
		Permissions:  models.Permissions(d.Permissions),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}, nil
}

// AdminRepository implements repositories.AdminRepository on a MongoDB collection
type AdminRepository struct {
	collection *mongo.Collection
}

// NewAdminRepository binds the repository to db and ensures the unique username index
func NewAdminRepository(ctx context.Context, db *mongo.Database) (*AdminRepository, error) {
	collection := db.Collection(CollectionName)

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "username_key", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("username_key_unique"),
	}
	if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return nil, fmt.Errorf("failed to create username index: %w", err)
	}

	return &AdminRepository{collection: collection}, nil
}

func (r *AdminRepository) Create(ctx context.Context, account *models.AdminAccount) (*models.AdminAccount, error) {
	id := account.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	// BSON dates carry millisecond precision
	now := time.Now().UTC().Truncate(time.Millisecond)

	doc := adminDocument{
		ID:           id.String(),
		Username:     account.Username,
		UsernameKey:  strings.ToLower(account.Username),
		DisplayName:  account.DisplayName,
		ProfileImage: account.ProfileImage,
		PasswordHash: account.PasswordHash,
		Role:         string(account.Role),
		Permissions:  toPermissionsDocument(account.Permissions),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, repositories.ErrConflict
		}
		return nil, fmt.Errorf("failed to create admin account: %w", err)
	}

	return doc.toModel()
}

func (r *AdminRepository) findOne(ctx context.Context, filter bson.M) (*models.AdminAccount, error) {
	var doc adminDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find admin account: %w", err)
	}
	return doc.toModel()
}

func (r *AdminRepository) FindByUsername(ctx context.Context, username string) (*models.AdminAccount, error) {
	return r.findOne(ctx, bson.M{"username_key": strings.ToLower(username)})
}

func (r *AdminRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.AdminAccount, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *AdminRepository) updateOne(ctx context.Context, id uuid.UUID, set bson.M) (*models.AdminAccount, error) {
	set["updated_at"] = time.Now().UTC().Truncate(time.Millisecond)

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc adminDocument
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id.String()}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update admin account: %w", err)
	}
	return doc.toModel()
}

// UpdatePermissions replaces the embedded permissions document as a unit
func (r *AdminRepository) UpdatePermissions(ctx context.Context, id uuid.UUID, permissions models.Permissions) (*models.AdminAccount, error) {
	return r.updateOne(ctx, id, bson.M{"permissions": toPermissionsDocument(permissions)})
}

func (r *AdminRepository) UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.AdminAccount, error) {
	return r.updateOne(ctx, id, bson.M{"role": string(role)})
}

func (r *AdminRepository) List(ctx context.Context) ([]*models.AdminAccount, error) {
	opts := options.Find().SetSort(bson.D{{Key: "username_key", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list admin accounts: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []adminDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode admin accounts: %w", err)
	}

	accounts := make([]*models.AdminAccount, 0, len(docs))
	for i := range docs {
		account, err := docs[i].toModel()
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (r *AdminRepository) Count(ctx context.Context) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count admin accounts: %w", err)
	}
	return count, nil
}

var _ repositories.AdminRepository = (*AdminRepository)(nil)
