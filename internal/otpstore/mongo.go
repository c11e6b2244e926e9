package otpstore

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Mongo reads OTPs and cleans up test data in the backend's MongoDB
// clusters. Users live in accountsDB/usersColl, OTPs in otpDB/otpColl.
type Mongo struct {
	client     *mongo.Client
	accountsDB string
	usersColl  string
	otpDB      string
	otpColl    string
}

// otpRecord is the shape of a document in the otps collection.
type otpRecord struct {
	Email     string    `bson:"email"`
	OTP       string    `bson:"otp"`
	CreatedAt time.Time `bson:"createdAt"`
}

// ConnectMongo opens a client against the given URI and returns a Store over
// the configured databases and collections.
func ConnectMongo(ctx context.Context, uri, accountsDB, usersColl, otpDB, otpColl string) (*Mongo, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}
	return &Mongo{
		client:     client,
		accountsDB: accountsDB,
		usersColl:  usersColl,
		otpDB:      otpDB,
		otpColl:    otpColl,
	}, nil
}

// LatestOTP returns the most recently created OTP for the email. Store
// errors other than a missing document are logged and reported as not found
// so a flaky store read fails one step, not the whole run.
func (m *Mongo) LatestOTP(ctx context.Context, email string) (string, error) {
	findOptions := options.FindOne()
	findOptions.SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var record otpRecord
	err := m.otps().FindOne(ctx, bson.M{"email": email}, findOptions).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrNotFound
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Warnf("Reading OTP for %s: %v", email, err)
		return "", ErrNotFound
	}
	if record.OTP == "" {
		return "", ErrNotFound
	}
	return record.OTP, nil
}

// PutOTP inserts an OTP record with the current timestamp.
func (m *Mongo) PutOTP(ctx context.Context, email, code string) error {
	_, err := m.otps().InsertOne(ctx, otpRecord{
		Email:     email,
		OTP:       code,
		CreatedAt: time.Now().UTC(),
	})
	return err
}

// DeleteTestData removes users and OTPs whose email matches the pattern.
func (m *Mongo) DeleteTestData(ctx context.Context, emailPattern string) (CleanupResult, error) {
	filter := bson.M{"email": bson.M{"$regex": emailPattern}}
	var result CleanupResult

	usersRes, err := m.users().DeleteMany(ctx, filter)
	if err != nil {
		return result, err
	}
	result.Users = usersRes.DeletedCount

	otpsRes, err := m.otps().DeleteMany(ctx, filter)
	if err != nil {
		return result, err
	}
	result.OTPs = otpsRes.DeletedCount

	return result, nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) users() *mongo.Collection {
	return m.client.Database(m.accountsDB).Collection(m.usersColl)
}

func (m *Mongo) otps() *mongo.Collection {
	return m.client.Database(m.otpDB).Collection(m.otpColl)
}
