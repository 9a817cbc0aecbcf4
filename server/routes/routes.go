package routes

import (
	"diskbtree/btree"
	"diskbtree/database"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// param copies a route parameter; fiber reuses the underlying buffer once the
// handler returns and these strings end up stored in trees and maps.
func param(c *fiber.Ctx, name string) string {
	return utils.CopyString(c.Params(name))
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, ErrDatabaseNotFound), errors.Is(err, database.ErrCollectionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrDatabaseExists), errors.Is(err, database.ErrCollectionExists):
		return fiber.StatusConflict
	case errors.Is(err, ErrInvalidDatabase), errors.Is(err, database.ErrInvalidName),
		btree.IsKind(err, btree.KindConfig):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, err error) error {
	return c.Status(errorStatus(err)).JSON(fiber.Map{"error": err.Error()})
}

func collection(store *Store, c *fiber.Ctx) (*database.Collection, error) {
	db, err := store.Get(param(c, "db"))
	if err != nil {
		return nil, err
	}
	return db.GetCollection(param(c, "name"))
}

func SetupRoutes(router fiber.Router, store *Store) {
	router.Get("/databases", func(c *fiber.Ctx) error {
		dbs, err := store.List()
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"databases": dbs})
	})

	router.Post("/databases", func(c *fiber.Ctx) error {
		var body struct {
			DBID string `json:"dbID"`
		}
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
			}
		}
		db, err := store.Create(body.DBID)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "created", "dbID": db.ID()})
	})

	router.Get("/databases/:db/collections", func(c *fiber.Ctx) error {
		db, err := store.Get(param(c, "db"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"collections": db.Collections()})
	})

	router.Post("/databases/:db/collections", func(c *fiber.Ctx) error {
		var body struct {
			Name     string `json:"name"`
			Capacity int    `json:"capacity"`
		}
		if err := c.BodyParser(&body); err != nil || body.Name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name and capacity required"})
		}
		db, err := store.Get(param(c, "db"))
		if err != nil {
			return fail(c, err)
		}
		if _, err := db.CreateCollection(body.Name, body.Capacity); err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "collection created"})
	})

	router.Get("/databases/:db/collections/:name/keys/:key", func(c *fiber.Ctx) error {
		coll, err := collection(store, c)
		if err != nil {
			return fail(c, err)
		}
		value, found, err := coll.Get(param(c, "key"))
		if err != nil {
			return fail(c, err)
		}
		if !found {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "key not found"})
		}
		return c.JSON(fiber.Map{"key": param(c, "key"), "value": value})
	})

	router.Put("/databases/:db/collections/:name/keys/:key", func(c *fiber.Ctx) error {
		var body struct {
			Value string `json:"value"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
		}
		coll, err := collection(store, c)
		if err != nil {
			return fail(c, err)
		}
		prev, existed, err := coll.Set(param(c, "key"), body.Value)
		if err != nil {
			return fail(c, err)
		}
		resp := fiber.Map{"status": "inserted"}
		if existed {
			resp = fiber.Map{"status": "updated", "previous": prev}
		}
		return c.JSON(resp)
	})

	router.Get("/databases/:db/collections/:name/stats", func(c *fiber.Ctx) error {
		coll, err := collection(store, c)
		if err != nil {
			return fail(c, err)
		}
		st, err := coll.Stats()
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(st)
	})
}
