// Package mgo provides MongoDB-backed implementations of the model
// store interfaces. Collection layout and field names match the model
// bson tags; entity ids are application-generated UUID strings kept in
// an "id" field, never the Mongo _id.
package mgo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Client wraps one database handle and hands out typed stores.
type Client struct {
	db *mongo.Database
}

// Dial connects, pings, and returns a Client bound to database.
func Dial(ctx context.Context, uri, database string) (*Client, error) {
	cli, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := cli.Ping(pingCtx, nil); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return &Client{db: cli.Database(database)}, nil
}

// Close disconnects the underlying client.
func (c *Client) Close(ctx context.Context) error {
	return c.db.Client().Disconnect(ctx)
}

// Users returns the account store.
func (c *Client) Users() *UserStore {
	return &UserStore{coll: c.db.Collection("users")}
}

// Projects returns the project store.
func (c *Client) Projects() *ProjectStore {
	return &ProjectStore{coll: c.db.Collection("projects")}
}

// Files returns the file store.
func (c *Client) Files() *FileStore {
	return &FileStore{coll: c.db.Collection("files")}
}

// Messages returns the chat history store.
func (c *Client) Messages() *MessageStore {
	return &MessageStore{coll: c.db.Collection("chat_messages")}
}

// ResetCodes returns the emailed reset code store.
func (c *Client) ResetCodes() *CodeStore {
	return &CodeStore{coll: c.db.Collection("password_resets")}
}

// ResetRequests returns the admin reset request store.
func (c *Client) ResetRequests() *RequestStore {
	return &RequestStore{coll: c.db.Collection("admin_reset_requests")}
}
