package marketplace

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/obiora-dev/taskpay/internal/db"
)

// Listing management proper lives with the content service; these handlers
// are the minimum glue so orders can reference a priced listing.

// CreateListing - seller publishes a priced listing.
func CreateListing(c echo.Context) error {
	sellerID, ok := c.Get("user_id").(string)
	if !ok || sellerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Price       int64  `json:"price"`
	}
	if err := c.Bind(&req); err != nil || req.Title == "" || req.Price <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and a positive price are required"})
	}

	listingID := uuid.New().String()
	_, err := db.Conn.Exec(c.Request().Context(),
		`INSERT INTO listings (id, seller_id, title, description, price)
		 VALUES ($1, $2, $3, $4, $5)`,
		listingID, sellerID, req.Title, req.Description, req.Price,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create listing"})
	}

	return c.JSON(http.StatusCreated, echo.Map{"listing_id": listingID})
}

// GetAllListings - public discovery of active listings.
func GetAllListings(c echo.Context) error {
	rows, err := db.Conn.Query(c.Request().Context(),
		`SELECT id, seller_id, title, COALESCE(description, ''), price, currency, status, created_at
		 FROM listings WHERE status = 'active' ORDER BY created_at DESC`)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch listings"})
	}
	defer rows.Close()

	var listings []Listing
	for rows.Next() {
		var l Listing
		if err := rows.Scan(&l.ID, &l.SellerID, &l.Title, &l.Description, &l.Price, &l.Currency, &l.Status, &l.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse record"})
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read listings"})
	}

	return c.JSON(http.StatusOK, echo.Map{"listings": listings})
}

// GetMyListings - seller's own listings, any status.
func GetMyListings(c echo.Context) error {
	sellerID, ok := c.Get("user_id").(string)
	if !ok || sellerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	rows, err := db.Conn.Query(c.Request().Context(),
		`SELECT id, seller_id, title, COALESCE(description, ''), price, currency, status, created_at
		 FROM listings WHERE seller_id = $1 ORDER BY created_at DESC`, sellerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch listings"})
	}
	defer rows.Close()

	var listings []Listing
	for rows.Next() {
		var l Listing
		if err := rows.Scan(&l.ID, &l.SellerID, &l.Title, &l.Description, &l.Price, &l.Currency, &l.Status, &l.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse record"})
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read listings"})
	}

	return c.JSON(http.StatusOK, echo.Map{"listings": listings})
}
