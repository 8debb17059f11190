package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/vsinha/bomcheck/pkg/domain/entities"
)

// Active edges with the child (or parent) item joined in
const (
	childEdgesQuery = `
		SELECT b.bom_id, b.parent_item_id, b.child_item_id, b.quantity_required, b.is_active,
		       i.item_id, i.item_code, i.item_name, i.unit, i.current_stock, i.is_active, i.unit_price
		FROM bom b
		JOIN items i ON i.item_id = b.child_item_id
		WHERE b.parent_item_id = $1 AND b.is_active
		ORDER BY b.child_item_id, b.bom_id`

	parentEdgesQuery = `
		SELECT b.bom_id, b.parent_item_id, b.child_item_id, b.quantity_required, b.is_active,
		       i.item_id, i.item_code, i.item_name, i.unit, i.current_stock, i.is_active, i.unit_price
		FROM bom b
		JOIN items i ON i.item_id = b.parent_item_id
		WHERE b.child_item_id = $1 AND b.is_active
		ORDER BY b.parent_item_id, b.bom_id`
)

func scanJoinedEdge(rows pgx.Rows) (entities.BOMEdge, entities.Item, error) {
	var (
		edge              entities.BOMEdge
		item              entities.Item
		parentID, childID int64
		itemID            int64
	)
	err := rows.Scan(
		&edge.BOMID, &parentID, &childID, &edge.QuantityPerUnit, &edge.IsActive,
		&itemID, &item.Code, &item.Name, &item.Unit, &item.CurrentStock, &item.IsActive, &item.UnitPrice,
	)
	if err != nil {
		return entities.BOMEdge{}, entities.Item{}, err
	}
	edge.ParentItemID = entities.ItemID(parentID)
	edge.ChildItemID = entities.ItemID(childID)
	item.ItemID = entities.ItemID(itemID)
	return edge, item, nil
}

func (s *Store) queryJoinedEdges(ctx context.Context, op, query string, id entities.ItemID, joinParent bool) ([]entities.BOMEdge, error) {
	rows, err := s.pool.Query(ctx, query, int64(id))
	if err != nil {
		return nil, persistenceErr(op, err)
	}
	defer rows.Close()

	var edges []entities.BOMEdge
	for rows.Next() {
		edge, item, err := scanJoinedEdge(rows)
		if err != nil {
			return nil, persistenceErr(op, err)
		}
		joined := item
		if joinParent {
			edge.Parent = &joined
		} else {
			edge.Child = &joined
		}
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr(op, err)
	}
	return edges, nil
}

// GetBOMEdges returns the active child edges of a parent with the child joined
func (s *Store) GetBOMEdges(ctx context.Context, parentID entities.ItemID) ([]entities.BOMEdge, error) {
	return s.queryJoinedEdges(ctx, "get bom edges", childEdgesQuery, parentID, false)
}

// GetParentEdges returns the active edges consuming childID with the parent joined
func (s *Store) GetParentEdges(ctx context.Context, childID entities.ItemID) ([]entities.BOMEdge, error) {
	return s.queryJoinedEdges(ctx, "get parent edges", parentEdgesQuery, childID, true)
}

func (s *Store) GetAllBOMEdges(ctx context.Context) ([]entities.BOMEdge, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT bom_id, parent_item_id, child_item_id, quantity_required, is_active
		FROM bom
		ORDER BY parent_item_id, child_item_id, bom_id
	`)
	if err != nil {
		return nil, persistenceErr("list bom edges", err)
	}
	defer rows.Close()

	var edges []entities.BOMEdge
	for rows.Next() {
		var (
			edge              entities.BOMEdge
			parentID, childID int64
		)
		if err := rows.Scan(&edge.BOMID, &parentID, &childID, &edge.QuantityPerUnit, &edge.IsActive); err != nil {
			return nil, persistenceErr("scan bom edge", err)
		}
		edge.ParentItemID = entities.ItemID(parentID)
		edge.ChildItemID = entities.ItemID(childID)
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("list bom edges", err)
	}
	return edges, nil
}

// LoadBOMEdges inserts edges in one transaction. Edges carrying a BOMID
// replace the existing row with that id.
func (s *Store) LoadBOMEdges(ctx context.Context, edges []entities.BOMEdge) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return persistenceErr("begin load bom", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, edge := range edges {
		parent, child := int64(edge.ParentItemID), int64(edge.ChildItemID)
		if edge.BOMID > 0 {
			_, err = tx.Exec(ctx, `
				INSERT INTO bom (bom_id, parent_item_id, child_item_id, quantity_required, is_active)
				VALUES ($1,$2,$3,$4,$5)
				ON CONFLICT (bom_id) DO UPDATE SET
					parent_item_id = EXCLUDED.parent_item_id,
					child_item_id = EXCLUDED.child_item_id,
					quantity_required = EXCLUDED.quantity_required,
					is_active = EXCLUDED.is_active
			`, edge.BOMID, parent, child, edge.QuantityPerUnit, edge.IsActive)
		} else {
			_, err = tx.Exec(ctx, `
				INSERT INTO bom (parent_item_id, child_item_id, quantity_required, is_active)
				VALUES ($1,$2,$3,$4)
			`, parent, child, edge.QuantityPerUnit, edge.IsActive)
		}
		if err != nil {
			return persistenceErr("insert bom edge", err)
		}
	}

	if _, err := tx.Exec(ctx, `
		SELECT setval(pg_get_serial_sequence('bom', 'bom_id'), COALESCE(MAX(bom_id), 1))
		FROM bom
	`); err != nil {
		return persistenceErr("advance bom sequence", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return persistenceErr("commit load bom", err)
	}
	return nil
}
