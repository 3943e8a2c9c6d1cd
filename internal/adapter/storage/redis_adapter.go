package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/chat-commerce/internal/core/domain"
)

const (
	stockKeyPrefix = "stock:"
	itemKeyPrefix  = "item:"
	catalogKey     = "catalog"
)

// Checks every line before touching any of them. Returns {1, stock...} on
// success, {0, i} when line i is short and {-1, i} when it has no stock key.
var decrementAllScript = redis.NewScript(`
for i, key in ipairs(KEYS) do
	local current = redis.call('GET', key)
	if not current then
		return {-1, i}
	end
	if tonumber(current) < tonumber(ARGV[i]) then
		return {0, i}
	end
end

local result = {1}
for i, key in ipairs(KEYS) do
	result[i + 1] = redis.call('DECRBY', key, tonumber(ARGV[i]))
end
return result
`)

// RedisInventory keeps item metadata in a hash, stock in a plain counter and
// catalog order in a list. Stock only moves through decrementAllScript.
type RedisInventory struct {
	client *redis.Client
}

func NewRedisInventory(client *redis.Client) *RedisInventory {
	return &RedisInventory{client: client}
}

func (r *RedisInventory) Get(ctx context.Context, itemID string) (domain.InventoryItem, error) {
	var (
		meta  *redis.MapStringStringCmd
		stock *redis.StringCmd
	)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		meta = pipe.HGetAll(ctx, itemKeyPrefix+itemID)
		stock = pipe.Get(ctx, stockKeyPrefix+itemID)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return domain.InventoryItem{}, fmt.Errorf("get item %s: %w", itemID, err)
	}
	return decodeItem(itemID, meta, stock)
}

func (r *RedisInventory) List(ctx context.Context) ([]domain.InventoryItem, error) {
	ids, err := r.client.LRange(ctx, catalogKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}

	metas := make([]*redis.MapStringStringCmd, len(ids))
	stocks := make([]*redis.StringCmd, len(ids))
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			metas[i] = pipe.HGetAll(ctx, itemKeyPrefix+id)
			stocks[i] = pipe.Get(ctx, stockKeyPrefix+id)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("list items: %w", err)
	}

	items := make([]domain.InventoryItem, 0, len(ids))
	for i, id := range ids {
		item, err := decodeItem(id, metas[i], stocks[i])
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *RedisInventory) Decrement(ctx context.Context, itemID string, quantity int) (domain.InventoryItem, error) {
	items, err := r.DecrementAll(ctx, []domain.CartLine{{ItemID: itemID, Quantity: quantity}})
	if err != nil {
		return domain.InventoryItem{}, err
	}
	return items[0], nil
}

func (r *RedisInventory) DecrementAll(ctx context.Context, lines []domain.CartLine) ([]domain.InventoryItem, error) {
	lines = mergeLines(lines)
	if len(lines) == 0 {
		return nil, nil
	}

	keys := make([]string, len(lines))
	args := make([]interface{}, len(lines))
	for i, line := range lines {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("decrement %s by %d: %w", line.ItemID, line.Quantity, domain.ErrInvalidInput)
		}
		keys[i] = stockKeyPrefix + line.ItemID
		args[i] = line.Quantity
	}

	result, err := decrementAllScript.Run(ctx, r.client, keys, args...).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("decrement stock: %w", err)
	}
	if len(result) < 2 {
		return nil, fmt.Errorf("decrement stock: unexpected script reply %v", result)
	}

	switch result[0] {
	case -1:
		return nil, fmt.Errorf("%s: %w", lines[result[1]-1].ItemID, domain.ErrNotFound)
	case 0:
		return nil, fmt.Errorf("%s: %w", lines[result[1]-1].ItemID, domain.ErrInsufficientStock)
	}

	updated := make([]domain.InventoryItem, 0, len(lines))
	for i, line := range lines {
		item, err := r.Get(ctx, line.ItemID)
		if err != nil {
			return nil, err
		}
		item.Stock = int(result[i+1])
		updated = append(updated, item)
	}
	return updated, nil
}

// Seed replaces the stored catalog with items, in order.
func (r *RedisInventory) Seed(ctx context.Context, items []domain.InventoryItem) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, catalogKey)
		for _, item := range items {
			pipe.RPush(ctx, catalogKey, item.ID)
			pipe.HSet(ctx, itemKeyPrefix+item.ID,
				"name", item.Name,
				"description", item.Description,
				"category", item.Category,
				"price", item.Price,
				"reorder_threshold", item.ReorderThreshold,
			)
			pipe.Set(ctx, stockKeyPrefix+item.ID, item.Stock, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	return nil
}

func (r *RedisInventory) SetStock(ctx context.Context, itemID string, quantity int) error {
	key := stockKeyPrefix + itemID
	return r.client.Set(ctx, key, quantity, 0).Err()
}

func decodeItem(id string, meta *redis.MapStringStringCmd, stock *redis.StringCmd) (domain.InventoryItem, error) {
	fields, err := meta.Result()
	if err != nil {
		return domain.InventoryItem{}, fmt.Errorf("read item %s: %w", id, err)
	}
	if len(fields) == 0 {
		return domain.InventoryItem{}, fmt.Errorf("%s: %w", id, domain.ErrNotFound)
	}

	item := domain.InventoryItem{
		ID:          id,
		Name:        fields["name"],
		Description: fields["description"],
		Category:    fields["category"],
	}
	if item.Price, err = strconv.ParseInt(fields["price"], 10, 64); err != nil {
		return domain.InventoryItem{}, fmt.Errorf("item %s price: %w", id, err)
	}
	if item.ReorderThreshold, err = strconv.Atoi(fields["reorder_threshold"]); err != nil {
		return domain.InventoryItem{}, fmt.Errorf("item %s threshold: %w", id, err)
	}

	item.Stock, err = stock.Int()
	if errors.Is(err, redis.Nil) {
		item.Stock = 0
	} else if err != nil {
		return domain.InventoryItem{}, fmt.Errorf("item %s stock: %w", id, err)
	}
	return item, nil
}

// mergeLines folds repeated item ids into one line, keeping first-seen order.
func mergeLines(lines []domain.CartLine) []domain.CartLine {
	out := make([]domain.CartLine, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, line := range lines {
		if i, ok := index[line.ItemID]; ok {
			out[i].Quantity += line.Quantity
			continue
		}
		index[line.ItemID] = len(out)
		out = append(out, line)
	}
	return out
}
