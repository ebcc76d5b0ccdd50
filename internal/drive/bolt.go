package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/drivevault/drivevault/internal/hardening"
)

// Bucket names
var (
	configBucket    = []byte("config")    // salt, hardening params, vault ID, timestamps - unencrypted
	documentsBucket = []byte("documents") // serialised storage documents
)

// Config keys
var (
	configVersion  = []byte("version")
	configCreated  = []byte("created")
	configModified = []byte("modified")
	configSalt     = []byte("salt")
	configParams   = []byte("params")
	configVaultID  = []byte("vault_id")
)

// BoltDrive packs every document of a vault plus its unencrypted
// metadata into one bbolt file.
type BoltDrive struct {
	db *bolt.DB
}

// OpenBolt opens or creates a vault database.
func OpenBolt(path string) (*BoltDrive, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("drive: open database: %w", err)
	}
	return &BoltDrive{db: db}, nil
}

// Close closes the database.
func (d *BoltDrive) Close() error {
	return d.db.Close()
}

// Initialize creates the bucket structure and stamps a fresh vault.
func (d *BoltDrive) Initialize() error {
	return d.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{configBucket, documentsBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("drive: create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(configBucket)
		if err := config.Put(configVersion, []byte("1")); err != nil {
			return err
		}
		now, _ := time.Now().MarshalBinary()
		if err := config.Put(configCreated, now); err != nil {
			return err
		}
		return config.Put(configModified, now)
	})
}

// IsInitialized reports whether Initialize has run on this database.
func (d *BoltDrive) IsInitialized() (bool, error) {
	var initialized bool
	err := d.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(configBucket)
		if config != nil && config.Get(configVersion) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

// SetSalt stores the hardening salt.
func (d *BoltDrive) SetSalt(salt []byte) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(configBucket).Put(configSalt, salt)
	})
}

// Salt retrieves the hardening salt.
func (d *BoltDrive) Salt() ([]byte, error) {
	var salt []byte
	err := d.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(configBucket)
		if config == nil {
			return fmt.Errorf("drive: config bucket not found")
		}
		data := config.Get(configSalt)
		if data == nil {
			return fmt.Errorf("drive: salt not found")
		}
		// Copy; the slice is only valid during the transaction.
		salt = append([]byte(nil), data...)
		return nil
	})
	return salt, err
}

// SetParams stores the hardening parameters.
func (d *BoltDrive) SetParams(params hardening.Params) error {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("drive: encode params: %w", err)
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(configBucket).Put(configParams, data)
	})
}

// Params retrieves the hardening parameters.
func (d *BoltDrive) Params() (hardening.Params, error) {
	var params hardening.Params
	err := d.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(configBucket)
		if config == nil {
			return fmt.Errorf("drive: config bucket not found")
		}
		data := config.Get(configParams)
		if data == nil {
			return fmt.Errorf("drive: params not found")
		}
		return json.Unmarshal(data, &params)
	})
	return params, err
}

// VaultID retrieves the vault's identity, generating and persisting one
// on first call.
func (d *BoltDrive) VaultID() (string, error) {
	var id string
	err := d.db.Update(func(tx *bolt.Tx) error {
		config := tx.Bucket(configBucket)
		if config == nil {
			return fmt.Errorf("drive: config bucket not found")
		}
		if data := config.Get(configVaultID); data != nil {
			id = string(data)
			return nil
		}
		id = uuid.NewString()
		return config.Put(configVaultID, []byte(id))
	})
	return id, err
}

// Modified retrieves the last document write time.
func (d *BoltDrive) Modified() (time.Time, error) {
	var modified time.Time
	err := d.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(configBucket)
		if config == nil {
			return fmt.Errorf("drive: config bucket not found")
		}
		data := config.Get(configModified)
		if data == nil {
			return fmt.Errorf("drive: modified time not found")
		}
		return modified.UnmarshalBinary(data)
	})
	return modified, err
}

// Created retrieves the vault creation time.
func (d *BoltDrive) Created() (time.Time, error) {
	var created time.Time
	err := d.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(configBucket)
		if config == nil {
			return fmt.Errorf("drive: config bucket not found")
		}
		data := config.Get(configCreated)
		if data == nil {
			return fmt.Errorf("drive: created time not found")
		}
		return created.UnmarshalBinary(data)
	})
	return created, err
}

func (d *BoltDrive) ReadDocument(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := d.db.View(func(tx *bolt.Tx) error {
		documents := tx.Bucket(documentsBucket)
		if documents == nil {
			return fmt.Errorf("%w: %s", ErrNotExist, name)
		}
		raw := documents.Get([]byte(name))
		if raw == nil {
			return fmt.Errorf("%w: %s", ErrNotExist, name)
		}
		data = append([]byte(nil), raw...)
		return nil
	})
	return data, err
}

func (d *BoltDrive) WriteDocument(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		documents, err := tx.CreateBucketIfNotExists(documentsBucket)
		if err != nil {
			return fmt.Errorf("drive: create bucket: %w", err)
		}
		if err := documents.Put([]byte(name), data); err != nil {
			return err
		}
		config := tx.Bucket(configBucket)
		if config == nil {
			return nil
		}
		now, _ := time.Now().MarshalBinary()
		return config.Put(configModified, now)
	})
}

func (d *BoltDrive) RemoveDocument(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		documents := tx.Bucket(documentsBucket)
		if documents == nil {
			return nil
		}
		return documents.Delete([]byte(name))
	})
}

// Compact rewrites the database into a fresh file, reclaiming space
// freed by removed documents, then swaps it in place.
func (d *BoltDrive) Compact() error {
	srcPath := d.db.Path()
	tmpPath := srcPath + ".compact"

	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("drive: create compact database: %w", err)
	}

	err = d.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(k, v)
				})
			})
		})
	})
	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("drive: copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("drive: close compact database: %w", err)
	}
	if err := d.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("drive: close source database: %w", err)
	}

	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return fmt.Errorf("drive: backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return fmt.Errorf("drive: replace database: %w", err)
	}
	os.Remove(backupPath)

	d.db, err = bolt.Open(srcPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("drive: reopen database: %w", err)
	}
	return nil
}
