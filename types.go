package userstore

import (
	"io"
	"time"
)

// StagingDir is the top-level directory of every user root that holds
// uploaded job input files until they are moved or discarded.
const StagingDir = "tmp"

// MetadataMimeType is the DataProduct metadata key carrying the content type.
const MetadataMimeType = "mime-type"

// DataProductType classifies a data product.
type DataProductType string

// DataProductFile is the only type this package registers.
const DataProductFile DataProductType = "FILE"

// ReplicaLocationCategory tells where a replica lives.
type ReplicaLocationCategory string

const (
	GatewayDataStore ReplicaLocationCategory = "GATEWAY_DATA_STORE"
	ComputeResource  ReplicaLocationCategory = "COMPUTE_RESOURCE"
)

// ReplicaPersistentType tells how long a replica is expected to live.
type ReplicaPersistentType string

// Transient marks gateway data store replicas.
const Transient ReplicaPersistentType = "TRANSIENT"

// ReplicaLocation points at one copy of a data product's bytes.
type ReplicaLocation struct {
	StorageResourceID string                  `json:"storageResourceId"`
	ReplicaName       string                  `json:"replicaName"`
	Category          ReplicaLocationCategory `json:"replicaLocationCategory"`
	PersistentType    ReplicaPersistentType   `json:"replicaPersistentType"`
	FilePath          string                  `json:"filePath"`
}

// DataProduct is the catalog record describing one logical file.
type DataProduct struct {
	ProductURI  string            `json:"productUri,omitempty"`
	GatewayID   string            `json:"gatewayId"`
	OwnerName   string            `json:"ownerName"`
	ProductName string            `json:"productName"`
	Type        DataProductType   `json:"dataProductType"`
	Metadata    map[string]string `json:"productMetadata,omitempty"`
	Replicas    []ReplicaLocation `json:"replicaLocations"`
}

// ContentType returns the product's mime-type metadata, if any.
func (p *DataProduct) ContentType() string {
	return p.Metadata[MetadataMimeType]
}

// Relocate returns an unregistered copy of p owned by owner whose only
// replica is loc. The metadata map and replica slice are not shared with p.
func (p *DataProduct) Relocate(owner string, loc ReplicaLocation) *DataProduct {
	var md map[string]string
	if len(p.Metadata) > 0 {
		md = make(map[string]string, len(p.Metadata))
		for k, v := range p.Metadata {
			md[k] = v
		}
	}
	return &DataProduct{
		GatewayID:   p.GatewayID,
		OwnerName:   owner,
		ProductName: p.ProductName,
		Type:        p.Type,
		Metadata:    md,
		Replicas:    []ReplicaLocation{loc},
	}
}

// Actor is the acting user of a call together with the catalog client
// already authenticated on their behalf.
type Actor struct {
	Username string
	Catalog  CatalogClient
}

// Entry describes one item of a directory listing.
type Entry struct {
	Name           string    `json:"name"`
	Path           string    `json:"path"`
	CreatedTime    time.Time `json:"created_time"`
	Size           int64     `json:"size"`
	Hidden         bool      `json:"hidden"`
	DataProductURI string    `json:"data-product-uri,omitempty"`
}

// ReadSeekCloser groups Read, Seek, and Close.
type ReadSeekCloser = io.ReadSeekCloser
