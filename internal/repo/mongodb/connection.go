package mongodb

import (
	"go.mongodb.org/mongo-driver/mongo"
)

// DB bundles the mongo client with the database handle repositories hang off.
type DB struct {
	Client   *mongo.Client
	Database *mongo.Database
}
