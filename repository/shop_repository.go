package repository

import (
	"context"
	"errors"
	"fmt"

	"guildbank/models"

	"github.com/jackc/pgx/v5"
)

// ShopRepository implements the ShopRepository interface
type ShopRepository struct {
	q       queryable
	guildID int64
}

// newShopRepository creates a new shop repository with a transaction and guild scope
func newShopRepository(tx queryable, guildID int64) *ShopRepository {
	return &ShopRepository{q: tx, guildID: guildID}
}

const shopItemColumns = `id, guild_id, name, price, reward_kind, resource, quantity, stock, created_at`

func scanShopItem(row pgx.Row) (*models.ShopItem, error) {
	var item models.ShopItem
	err := row.Scan(
		&item.ID,
		&item.GuildID,
		&item.Name,
		&item.Price,
		&item.RewardKind,
		&item.Resource,
		&item.Quantity,
		&item.Stock,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Create inserts a new item and fills in its ID
func (r *ShopRepository) Create(ctx context.Context, item *models.ShopItem) error {
	query := `
		INSERT INTO shop_items (guild_id, name, price, reward_kind, resource, quantity, stock)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		r.guildID,
		item.Name,
		item.Price,
		item.RewardKind,
		item.Resource,
		item.Quantity,
		item.Stock,
	).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create shop item %q: %w", item.Name, err)
	}

	item.GuildID = r.guildID
	return nil
}

func (r *ShopRepository) getByID(ctx context.Context, id int64, suffix string) (*models.ShopItem, error) {
	query := `SELECT ` + shopItemColumns + ` FROM shop_items WHERE id = $1 AND guild_id = $2 ` + suffix

	item, err := scanShopItem(r.q.QueryRow(ctx, query, id, r.guildID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop item %d: %w", id, err)
	}
	return item, nil
}

// GetByID retrieves an item in this guild, or nil
func (r *ShopRepository) GetByID(ctx context.Context, id int64) (*models.ShopItem, error) {
	return r.getByID(ctx, id, "")
}

// GetByIDForUpdate retrieves an item and locks its row
func (r *ShopRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.ShopItem, error) {
	return r.getByID(ctx, id, "FOR UPDATE")
}

// List returns the guild's items ordered by price
func (r *ShopRepository) List(ctx context.Context) ([]*models.ShopItem, error) {
	query := `SELECT ` + shopItemColumns + ` FROM shop_items WHERE guild_id = $1 ORDER BY price, name`

	rows, err := r.q.Query(ctx, query, r.guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shop items: %w", err)
	}
	defer rows.Close()

	var items []*models.ShopItem
	for rows.Next() {
		item, err := scanShopItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shop item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shop items: %w", err)
	}
	return items, nil
}

// DecrementStock takes one unit of finite stock. ok is false when the item is
// sold out or has unlimited stock.
func (r *ShopRepository) DecrementStock(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE shop_items
		SET stock = stock - 1
		WHERE id = $1 AND guild_id = $2 AND stock > 0
	`

	result, err := r.q.Exec(ctx, query, id, r.guildID)
	if err != nil {
		return false, fmt.Errorf("failed to decrement stock of item %d: %w", id, err)
	}
	return result.RowsAffected() == 1, nil
}

// AddGood adds quantity of an item to a member's inventory
func (r *ShopRepository) AddGood(ctx context.Context, discordID, itemID, quantity int64) error {
	query := `
		INSERT INTO inventory_goods (guild_id, discord_id, item_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (guild_id, discord_id, item_id)
		DO UPDATE SET quantity = inventory_goods.quantity + EXCLUDED.quantity
	`

	if _, err := r.q.Exec(ctx, query, r.guildID, discordID, itemID, quantity); err != nil {
		return fmt.Errorf("failed to add item %d to inventory of %d: %w", itemID, discordID, err)
	}
	return nil
}

// ListGoods returns the goods a member owns
func (r *ShopRepository) ListGoods(ctx context.Context, discordID int64) ([]*models.InventoryGood, error) {
	query := `
		SELECT g.guild_id, g.discord_id, g.item_id, i.name, g.quantity
		FROM inventory_goods g
		JOIN shop_items i ON i.id = g.item_id
		WHERE g.guild_id = $1 AND g.discord_id = $2 AND g.quantity > 0
		ORDER BY i.name
	`

	rows, err := r.q.Query(ctx, query, r.guildID, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goods of %d: %w", discordID, err)
	}
	defer rows.Close()

	var goods []*models.InventoryGood
	for rows.Next() {
		var g models.InventoryGood
		if err := rows.Scan(&g.GuildID, &g.DiscordID, &g.ItemID, &g.Name, &g.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan inventory good: %w", err)
		}
		goods = append(goods, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inventory goods: %w", err)
	}
	return goods, nil
}
