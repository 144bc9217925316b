package catalog

import (
	"github.com/sirupsen/logrus"
	"github.com/yourbasic/graph"

	"github.com/nialov/kapalo-go/pkg/models"
)

// Catalog holds the static kapalo schema and its table dependency graph
type Catalog struct {
	Tables          []models.TableDef
	DependencyGraph *graph.Mutable
	TableIndexMap   map[string]int
	IndexTableMap   map[int]string
	Logger          *logrus.Logger
}

// New creates a schema catalog with the dependency graph built from the
// table link rules
func New(logger *logrus.Logger) *Catalog {
	c := &Catalog{
		Tables:        kapaloTables(),
		TableIndexMap: make(map[string]int),
		IndexTableMap: make(map[int]string),
		Logger:        logger,
	}

	// Create a map of table indices for the dependency graph
	for i, table := range c.Tables {
		c.TableIndexMap[table.Name] = i
		c.IndexTableMap[i] = table.Name
	}

	// Initialize the dependency graph
	c.DependencyGraph = graph.New(len(c.Tables))

	// Add an edge from each parent to its children. All kapalo links are
	// mandatory so every edge carries weight 1.
	for _, table := range c.Tables {
		if table.Link == nil {
			continue
		}
		childIdx, ok := c.TableIndexMap[table.Name]
		if !ok {
			continue
		}
		parentIdx, ok := c.TableIndexMap[table.Link.ParentTable]
		if !ok {
			c.Logger.Warningf("Link parent %s of table %s is not in the catalog", table.Link.ParentTable, table.Name)
			continue
		}
		c.DependencyGraph.AddCost(parentIdx, childIdx, 1)
	}

	return c
}

// Lookup returns the definition of the named table
func (c *Catalog) Lookup(name string) (models.TableDef, bool) {
	idx, ok := c.TableIndexMap[name]
	if !ok {
		return models.TableDef{}, false
	}
	return c.Tables[idx], true
}

// TableNames returns the catalog table names in definition order
func (c *Catalog) TableNames() []string {
	names := make([]string, 0, len(c.Tables))
	for _, table := range c.Tables {
		names = append(names, table.Name)
	}
	return names
}

// ParentOf returns the link rule of a child table
func (c *Catalog) ParentOf(name string) (models.LinkRule, bool) {
	table, ok := c.Lookup(name)
	if !ok || table.Link == nil {
		return models.LinkRule{}, false
	}
	return *table.Link, true
}

// LoadOrder determines the order in which tables should be loaded so that
// every parent table precedes its children
func (c *Catalog) LoadOrder() []string {
	order, ok := graph.TopSort(c.DependencyGraph)
	if !ok {
		// The static catalog is acyclic so this only happens if the
		// definitions are edited into a cycle. Fall back to definition
		// order.
		c.Logger.Error("Dependency graph contains a cycle, using definition order")
		return c.TableNames()
	}

	orderedTables := make([]string, 0, len(order))
	for _, idx := range order {
		orderedTables = append(orderedTables, c.IndexTableMap[idx])
	}
	return orderedTables
}

// ChildTables returns the names of tables whose link rule points at the
// named parent
func (c *Catalog) ChildTables(parent string) []string {
	var children []string
	if idx, ok := c.TableIndexMap[parent]; ok {
		c.DependencyGraph.Visit(idx, func(w int, _ int64) bool {
			children = append(children, c.IndexTableMap[w])
			return false
		})
	}
	return children
}
