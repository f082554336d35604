package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"teamTracker/internal/logger"
	"teamTracker/internal/models/user"
	"teamTracker/internal/policy"
	repo "teamTracker/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const firstAdminClaim = "first_admin"

// claimGrace is how long a claim whose holder has no profile is assumed to
// belong to a registration still in flight.
const claimGrace = time.Minute

// errClaimRace aborts a transaction that lost the first-admin insert to a
// concurrent registrant; the next attempt sees the committed claim.
var errClaimRace = errors.New("bootstrap claim taken concurrently")

type claim struct {
	Name      string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	ClaimedAt time.Time `bson:"claimed_at"`
}

type UserStore struct {
	c       *mongo.Collection
	claims  *mongo.Collection
	storage *Storage
}

// CreateWithBootstrap writes the first-admin claim and the profile in one
// transaction. Without transaction support a failed profile insert releases
// the claim, and a claim left by a registrant who never got a profile is
// handed to the next registrant once claimGrace has passed.
func (s *UserStore) CreateWithBootstrap(ctx context.Context, u *user.User) error {
	start := time.Now()
	defer warnIfSlow("users.create", start)

	var (
		first bool
		err   error
	)
	for attempt := 0; attempt < 3; attempt++ {
		err = s.storage.inTransaction(ctx, func(ctx context.Context, tx bool) error {
			var err error
			if first, err = s.claimFirstAdmin(ctx, u, tx); err != nil {
				return err
			}

			doc := *u
			doc.Role = policy.BootstrapRole(first)
			doc.Deleted = false

			if _, err := s.c.InsertOne(ctx, doc); err != nil {
				if first && !tx {
					s.releaseClaim(u.ID)
				}
				return fmt.Errorf("insert user: %w", mapError(err))
			}
			return nil
		})
		if !errors.Is(err, errClaimRace) {
			break
		}
	}
	if errors.Is(err, errClaimRace) {
		err = fmt.Errorf("%w: %w", repo.ErrUnavailable, err)
	}
	if err != nil {
		logger.Error("Repository: Failed to insert user", err, zap.String("user_id", u.ID))
		return err
	}

	u.Role = policy.BootstrapRole(first)
	if first {
		logger.Info("Repository: First profile promoted to admin", zap.String("user_id", u.ID))
	}
	return nil
}

// claimFirstAdmin reports whether u takes the first-admin slot.
func (s *UserStore) claimFirstAdmin(ctx context.Context, u *user.User, tx bool) (bool, error) {
	now := time.Now().UTC()

	var held claim
	err := s.claims.FindOne(ctx, bson.M{"_id": firstAdminClaim}).Decode(&held)
	if errors.Is(err, mongo.ErrNoDocuments) {
		_, err := s.claims.InsertOne(ctx, claim{Name: firstAdminClaim, UserID: u.ID, ClaimedAt: now})
		switch {
		case err == nil:
			return true, nil
		case mongo.IsDuplicateKeyError(err) && tx:
			// the write error has already aborted the transaction
			return false, errClaimRace
		case mongo.IsDuplicateKeyError(err):
			return false, nil
		}
		return false, fmt.Errorf("claim bootstrap: %w", mapError(err))
	}
	if err != nil {
		return false, fmt.Errorf("read bootstrap claim: %w", mapError(err))
	}

	if held.UserID != u.ID && now.Sub(held.ClaimedAt) < claimGrace {
		return false, nil
	}
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": held.UserID})
	if err != nil {
		return false, fmt.Errorf("check bootstrap claim holder: %w", mapError(err))
	}
	if n > 0 {
		return false, nil
	}
	if held.UserID == u.ID {
		return true, nil
	}

	res, err := s.claims.UpdateOne(ctx,
		bson.M{"_id": firstAdminClaim, "user_id": held.UserID},
		bson.M{"$set": bson.M{"user_id": u.ID, "claimed_at": now}})
	if err != nil {
		return false, fmt.Errorf("take over bootstrap claim: %w", mapError(err))
	}
	if res.ModifiedCount == 0 {
		return false, nil
	}
	logger.Warn("Repository: Took over abandoned bootstrap claim",
		zap.String("abandoned_by", held.UserID), zap.String("user_id", u.ID))
	return true, nil
}

func (s *UserStore) releaseClaim(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := s.claims.DeleteOne(ctx, bson.M{"_id": firstAdminClaim, "user_id": userID}); err != nil {
		logger.Error("Repository: Failed to release bootstrap claim", err, zap.String("user_id", userID))
	}
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*user.User, error) {
	start := time.Now()
	defer warnIfSlow("users.get", start)

	var u user.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, mapError(err))
	}
	return &u, nil
}

func (s *UserStore) List(ctx context.Context) ([]*user.User, error) {
	start := time.Now()
	defer warnIfSlow("users.list", start)

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		logger.Error("Repository: Failed to list users", err)
		return nil, fmt.Errorf("list users: %w", mapError(err))
	}
	users := []*user.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", mapError(err))
	}
	return users, nil
}

func (s *UserStore) SetRole(ctx context.Context, id string, role user.Role) error {
	return s.set(ctx, "users.set_role", id, bson.M{"role": role})
}

func (s *UserStore) SoftDelete(ctx context.Context, id string, at time.Time) error {
	return s.set(ctx, "users.soft_delete", id, bson.M{"deleted": true, "deleted_at": at})
}

func (s *UserStore) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return s.set(ctx, "users.touch_login", id, bson.M{"last_login_at": at})
}

func (s *UserStore) CountAdmins(ctx context.Context) (int, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"role": user.RoleAdmin, "deleted": false})
	if err != nil {
		return 0, fmt.Errorf("count admins: %w", mapError(err))
	}
	return int(n), nil
}

func (s *UserStore) set(ctx context.Context, op, id string, fields bson.M) error {
	start := time.Now()
	defer warnIfSlow(op, start)

	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": fields})
	if err != nil {
		logger.Error("Repository: User update failed", err, zap.String("op", op))
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	if res.MatchedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}

