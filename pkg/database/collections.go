package database

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func createIndexes() {
	createTripsIndexes()
	createArrivalReasonsIndexes()
	createPushTargetsIndexes()
}

func createTripsIndexes() {
	tripsCollection := GetCollection("trips")
	tripsIndex := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "primaryidentifier", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "isactive", Value: 1}},
		},
	}

	opts := options.CreateIndexes()
	_, err := tripsCollection.Indexes().CreateMany(context.Background(), tripsIndex, opts)
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}

func createArrivalReasonsIndexes() {
	arrivalReasonsCollection := GetCollection("arrival_reasons")
	arrivalReasonsIndex := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "tripid", Value: 1}, {Key: "stopid", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "recordedat", Value: 1}},
		},
	}

	opts := options.CreateIndexes()
	_, err := arrivalReasonsCollection.Indexes().CreateMany(context.Background(), arrivalReasonsIndex, opts)
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}

func createPushTargetsIndexes() {
	pushTargetsCollection := GetCollection("operator_push_targets")
	pushTargetsIndex := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "operatorid", Value: 1}},
		},
	}

	opts := options.CreateIndexes()
	_, err := pushTargetsCollection.Indexes().CreateMany(context.Background(), pushTargetsIndex, opts)
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}
