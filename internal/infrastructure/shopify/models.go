package shopify

type productEnvelope struct {
	Product product `json:"product"`
}

type product struct {
	ID          int64     `json:"id,omitempty"`
	GraphQLID   string    `json:"admin_graphql_api_id,omitempty"`
	Title       string    `json:"title,omitempty"`
	BodyHTML    string    `json:"body_html,omitempty"`
	ProductType string    `json:"product_type,omitempty"`
	Handle      string    `json:"handle,omitempty"`
	Status      string    `json:"status,omitempty"`
	Variants    []variant `json:"variants,omitempty"`
	Images      []image   `json:"images,omitempty"`
}

type variant struct {
	SKU             string `json:"sku"`
	Price           string `json:"price,omitempty"`
	InventoryPolicy string `json:"inventory_policy,omitempty"`
}

type image struct {
	Src string `json:"src"`
}
