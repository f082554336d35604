package mongo

import "go.mongodb.org/mongo-driver/mongo"

const (
	UsersCollection  = usersCollection
	ClaimsCollection = claimsCollection
	FirstAdminClaim  = firstAdminClaim
	ClaimGrace       = claimGrace
)

func (s *Storage) DisableTransactions() { s.noTxn.Store(true) }

func (s *Storage) Collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}
