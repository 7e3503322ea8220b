package domain

type StatusName string

const (
	StatusInZephir             StatusName = "in_zephir"
	StatusAddedToDigifeedsSet  StatusName = "added_to_digifeeds_set"
	StatusCopyingStart         StatusName = "copying_start"
	StatusCopyingEnd           StatusName = "copying_end"
	StatusPendingDeletion      StatusName = "pending_deletion"
	StatusNotFoundInAlma       StatusName = "not_found_in_alma"
	StatusInHathifiles         StatusName = "in_hathifiles"
	StatusPrunedFromFileserver StatusName = "pruned_from_fileserver"
	StatusPrunedFromS3         StatusName = "pruned_from_s3"
)

type Status struct {
	Name        StatusName `json:"name"`
	Description string     `json:"description"`
}

// StatusCatalog is the fixed seed list. It is loaded once into the statuses
// table and never mutated afterwards.
var StatusCatalog = []Status{
	{Name: StatusInZephir, Description: "Item is in zephir"},
	{Name: StatusAddedToDigifeedsSet, Description: "Item has been added to the digifeeds set"},
	{Name: StatusCopyingStart, Description: "The process for zipping and copying an item to the pickup location has started"},
	{Name: StatusCopyingEnd, Description: "The process for zipping and copying an item to the pickup location has completed successfully"},
	{Name: StatusPendingDeletion, Description: "The item has been copied to the pickup location and can be deleted upon ingest confirmation"},
	{Name: StatusNotFoundInAlma, Description: "Barcode wasn't found in Alma"},
	{Name: StatusInHathifiles, Description: "Barcode was found in the Hathifiles Database"},
	{Name: StatusPrunedFromFileserver, Description: "Image zips and folders have been pruned from the fileserver"},
	{Name: StatusPrunedFromS3, Description: "Image zips have been pruned from the s3 bucket"},
}

func KnownStatus(name StatusName) bool {
	for _, s := range StatusCatalog {
		if s.Name == name {
			return true
		}
	}
	return false
}
