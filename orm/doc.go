/*
Package orm provides an easy to use db wrapper

Break state space into prefixed sections called Buckets.
* Each bucket contains only one type of object.
* It has a primary index (which may be generated by a sequence),
and may possess secondary indexes.
* Secondary indexes are stored natively, one database entry per indexed
value and entity, so that writes of two different entities never touch
the same index key.
* Easy queries for one and iteration.
*/
package orm
