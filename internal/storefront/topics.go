package storefront

const TopicActivity = "storefront.activity"

// Partition key = session or cart id, so one visitor's events keep their order.
func PartitionKey(id string) []byte { return []byte(id) }
