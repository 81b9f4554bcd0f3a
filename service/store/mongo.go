package store

import (
	"context"
	"time"

	"CProject/tools/errs"
	"CProject/tools/ids"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig mirrors the connection knobs the gateway exposes. URI may carry
// parameters (?authSource=admin etc.); explicit credentials override it.
type MongoConfig struct {
	URI         string
	Database    string
	Username    string
	Password    string
	AuthSource  string
	MaxPoolSize int
}

// MongoStore is the production RoomStore: rooms and comments collections.
type MongoStore struct {
	rooms    *mongo.Collection
	comments *mongo.Collection
}

func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, errs.New("mongo uri is required")
	}
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(uint64(cfg.MaxPoolSize))
	}
	if cfg.Username != "" {
		opts.SetAuth(options.Credential{
			Username:   cfg.Username,
			Password:   cfg.Password,
			AuthSource: cfg.AuthSource,
		})
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	cli, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, errs.WrapMsg(err, "mongo connect", "uri", cfg.URI)
	}
	if err := cli.Ping(connectCtx, nil); err != nil {
		return nil, errs.WrapMsg(err, "mongo ping")
	}

	db := cli.Database(cfg.Database)
	s := &MongoStore{
		rooms:    db.Collection("rooms"),
		comments: db.Collection("comments"),
	}
	if err := s.ensureIndexes(connectCtx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.comments.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	return errs.WrapMsg(err, "ensure comment index")
}

func (s *MongoStore) GetRoom(ctx context.Context, roomID string) (*Room, error) {
	var r Room
	err := s.rooms.FindOne(ctx, bson.M{"_id": roomID}).Decode(&r)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errs.ErrStoreUnavailable.WrapMsg("get room", "room_id", roomID, "err", err)
	}
	return &r, nil
}

func (s *MongoStore) ListComments(ctx context.Context, roomID string) ([]Comment, error) {
	cur, err := s.comments.Find(ctx, bson.M{"room_id": roomID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errs.ErrStoreUnavailable.WrapMsg("list comments", "room_id", roomID, "err", err)
	}
	defer cur.Close(ctx)

	out := make([]Comment, 0, 16)
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.ErrStoreUnavailable.WrapMsg("decode comments", "room_id", roomID, "err", err)
	}
	return out, nil
}

func (s *MongoStore) CreateComment(ctx context.Context, in CommentInput) (*Comment, error) {
	now := time.Now().UTC()
	c := Comment{
		ID:         ids.GenerateString(),
		RoomID:     in.RoomID,
		AuthorID:   in.AuthorID,
		Body:       in.Body,
		AnchorID:   in.AnchorID,
		AnchorType: in.AnchorType,
		ParentID:   in.ParentID,
		Position:   in.Position,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.comments.InsertOne(ctx, c); err != nil {
		return nil, errs.ErrStoreUnavailable.WrapMsg("insert comment", "room_id", in.RoomID, "err", err)
	}
	return &c, nil
}

func (s *MongoStore) UpdateComment(ctx context.Context, roomID, commentID, callerID, body string) (*Comment, error) {
	if err := s.checkOwner(ctx, roomID, commentID, callerID); err != nil {
		return nil, err
	}
	var updated Comment
	err := s.comments.FindOneAndUpdate(ctx,
		bson.M{"_id": commentID, "room_id": roomID},
		bson.M{"$set": bson.M{"body": body, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrCommentNotFound.Wrap()
	}
	if err != nil {
		return nil, errs.ErrStoreUnavailable.WrapMsg("update comment", "comment_id", commentID, "err", err)
	}
	return &updated, nil
}

func (s *MongoStore) DeleteComment(ctx context.Context, roomID, commentID, callerID string) error {
	if err := s.checkOwner(ctx, roomID, commentID, callerID); err != nil {
		return err
	}
	res, err := s.comments.DeleteOne(ctx, bson.M{"_id": commentID, "room_id": roomID})
	if err != nil {
		return errs.ErrStoreUnavailable.WrapMsg("delete comment", "comment_id", commentID, "err", err)
	}
	if res.DeletedCount == 0 {
		return errs.ErrCommentNotFound.Wrap()
	}
	return nil
}

func (s *MongoStore) ResolveComment(ctx context.Context, roomID, commentID, callerID string, system bool) (*Comment, error) {
	resolvedBy := callerID
	if system {
		resolvedBy = "system"
	}
	var updated Comment
	err := s.comments.FindOneAndUpdate(ctx,
		bson.M{"_id": commentID, "room_id": roomID},
		bson.M{"$set": bson.M{"resolved": true, "resolved_by": resolvedBy, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrCommentNotFound.Wrap()
	}
	if err != nil {
		return nil, errs.ErrStoreUnavailable.WrapMsg("resolve comment", "comment_id", commentID, "err", err)
	}
	return &updated, nil
}

func (s *MongoStore) checkOwner(ctx context.Context, roomID, commentID, callerID string) error {
	var c Comment
	err := s.comments.FindOne(ctx, bson.M{"_id": commentID, "room_id": roomID}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return errs.ErrCommentNotFound.Wrap()
	}
	if err != nil {
		return errs.ErrStoreUnavailable.WrapMsg("load comment", "comment_id", commentID, "err", err)
	}
	if c.AuthorID != callerID {
		return errs.ErrCommentForbidden.Wrap()
	}
	return nil
}
