package dbclient

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"barrel/internal/barrel"
	"barrel/internal/domain"
)

// mongoStore writes each schema to the collection named by its table.
type mongoStore struct {
	client *mongo.Client
	dbName string
}

func newMongoStore(conn *domain.DatabaseConnection, password string) (*mongoStore, error) {
	uri := buildMongoURI(conn, password)

	dbName := conn.Database
	if dbName == "" {
		dbName = databaseFromURI(uri)
	}

	// Mask password in URI for logging
	logURI := uri
	if password != "" && strings.Contains(logURI, password) {
		logURI = strings.ReplaceAll(logURI, password, "***")
	}
	log.Printf("[MONGO] Connecting with URI: %s", logURI)
	log.Printf("[MONGO] Database: %s", dbName)

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		log.Printf("[MONGO] Connect failed: %v", err)
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return &mongoStore{client: client, dbName: dbName}, nil
}

// buildMongoURI accepts either a full mongodb:// or mongodb+srv:// URI in
// Host, or a bare host to be combined with Port and credentials.
func buildMongoURI(conn *domain.DatabaseConnection, password string) string {
	if strings.HasPrefix(conn.Host, "mongodb+srv://") || strings.HasPrefix(conn.Host, "mongodb://") {
		uri := conn.Host
		// Atlas connection strings carry a placeholder
		if password != "" {
			uri = strings.ReplaceAll(uri, "<password>", password)
			uri = strings.ReplaceAll(uri, "<db_password>", password)
		}
		if conn.Database != "" && !strings.Contains(uri, "/"+conn.Database) {
			if idx := strings.Index(uri, "?"); idx != -1 {
				uri = strings.TrimRight(uri[:idx], "/") + "/" + conn.Database + uri[idx:]
			} else {
				uri = strings.TrimRight(uri, "/") + "/" + conn.Database
			}
		}
		return uri
	}

	port := conn.Port
	if port == 0 {
		port = 27017
	}
	var uri string
	if conn.Username != "" {
		uri = fmt.Sprintf("mongodb://%s:%s@%s:%d", conn.Username, password, conn.Host, port)
	} else {
		uri = fmt.Sprintf("mongodb://%s:%d", conn.Host, port)
	}

	// authSource, replicaSet, etc.
	if len(conn.Extra) > 0 {
		keys := make([]string, 0, len(conn.Extra))
		for k := range conn.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		params := make([]string, len(keys))
		for i, k := range keys {
			params[i] = k + "=" + conn.Extra[k]
		}
		uri += "/?" + strings.Join(params, "&")
	}
	return uri
}

// databaseFromURI extracts the path segment of user:pass@host/DB?params,
// falling back to "test" like the mongo shell.
func databaseFromURI(uri string) string {
	rest := uri
	for _, prefix := range []string{"mongodb+srv://", "mongodb://"} {
		if strings.HasPrefix(rest, prefix) {
			rest = rest[len(prefix):]
			break
		}
	}
	if at := strings.Index(rest, "@"); at != -1 {
		rest = rest[at+1:]
	}
	if slash := strings.Index(rest, "/"); slash != -1 {
		path := rest[slash+1:]
		if q := strings.Index(path, "?"); q != -1 {
			path = path[:q]
		}
		if path != "" {
			return path
		}
	}
	return "test"
}

func (m *mongoStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return m.client.Ping(ctx, nil)
}

func (m *mongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// InsertFunc writes each batch with a single InsertMany. The callback row
// carries the document's _id, generated by the driver when the schema has none.
func (m *mongoStore) InsertFunc(schema *barrel.Schema, cb barrel.Callback) barrel.InsertFunc {
	cols := columnsOf(schema)
	collName := schema.Table

	return func(ctx context.Context, records []barrel.Record) error {
		if len(records) == 0 {
			return nil
		}
		docs := make([]bson.D, len(records))
		for i, rec := range records {
			doc := make(bson.D, 0, len(cols))
			for _, c := range cols {
				doc = append(doc, bson.E{Key: c.name, Value: rec[c.key]})
			}
			docs[i] = doc
		}

		coll := m.client.Database(m.dbName).Collection(collName)
		res, err := coll.InsertMany(ctx, docs)
		if err != nil {
			log.Printf("[MONGO] InsertMany into %s failed: %v", collName, err)
			return fmt.Errorf("insert into %s: %w", collName, err)
		}
		log.Printf("[MONGO] inserted %d document(s) into %s", len(res.InsertedIDs), collName)

		if cb == nil {
			return nil
		}
		for i, rec := range records {
			row := rowOf(cols, rec)
			if i < len(res.InsertedIDs) {
				row["_id"] = res.InsertedIDs[i]
			}
			if err := cb(ctx, row); err != nil {
				return err
			}
		}
		return nil
	}
}
